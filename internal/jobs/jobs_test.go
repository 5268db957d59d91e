package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumeBuilder/internal/ai"
	"resumeBuilder/internal/upstream"
)

type fixedParams struct{ p ai.SearchParams }

func (f fixedParams) ExtractSearchParams(context.Context, []byte) ai.SearchParams { return f.p }

func TestRecommendWithoutCredentialsReturnsSamples(t *testing.T) {
	r := NewRecommender(nil, Options{})
	jobs, err := r.Recommend(context.Background(), []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(jobs) != 3 || jobs[0].Title != "Senior React Developer" || jobs[0].MatchScore != 95 {
		t.Fatalf("unexpected sample jobs: %+v", jobs)
	}
}

func TestRecommendQueriesAdzunaAndScores(t *testing.T) {
	var gotPath, gotWhat, gotWhere, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWhat = r.URL.Query().Get("what")
		gotWhere = r.URL.Query().Get("where")
		gotKey = r.URL.Query().Get("app_key")
		_, _ = w.Write([]byte(`{"results":[
			{"id":"101","title":"PHP Developer","description":"Laravel work","redirect_url":"https://a","company":{"display_name":"A"},"location":{"display_name":"Remote"}},
			{"id":202,"title":"Go Engineer","description":"Go and Postgres services","redirect_url":"https://b","salary_min":100000,"company":{"display_name":"B"},"location":{"display_name":"Berlin"}}
		]}`))
	}))
	defer srv.Close()

	r := NewRecommender(fixedParams{ai.SearchParams{What: "Go Engineer", Where: "Berlin"}}, Options{
		AppID: "id", AppKey: "key", BaseURL: srv.URL, Country: "de",
	})
	jobs, err := r.Recommend(context.Background(), []byte(`{}`), []string{"Go", "Postgres"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if gotPath != "/jobs/de/search/1" || gotWhat != "Go Engineer" || gotWhere != "Berlin" || gotKey != "key" {
		t.Fatalf("unexpected request: %s what=%q where=%q key=%q", gotPath, gotWhat, gotWhere, gotKey)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	top := jobs[0]
	if top.ID != "202" || top.Company != "B" || top.Location != "Berlin" || top.URL != "https://b" {
		t.Fatalf("unexpected mapping: %+v", top)
	}
	if top.SalaryMin == nil || *top.SalaryMin != 100000 || top.SalaryMax != nil {
		t.Fatalf("unexpected salary: %+v %+v", top.SalaryMin, top.SalaryMax)
	}
	if top.MatchScore != 99 || jobs[1].MatchScore != 50 {
		t.Fatalf("unexpected scores: %d %d", top.MatchScore, jobs[1].MatchScore)
	}
}

func TestRecommendClassifiesUpstreamFailures(t *testing.T) {
	cases := map[int]int{
		http.StatusForbidden:          http.StatusTooManyRequests,
		http.StatusTooManyRequests:    http.StatusTooManyRequests,
		http.StatusServiceUnavailable: http.StatusBadGateway,
	}
	for upstreamStatus, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(upstreamStatus)
		}))
		r := NewRecommender(nil, Options{AppID: "id", AppKey: "key", BaseURL: srv.URL})
		_, err := r.Recommend(context.Background(), []byte(`{}`), nil)
		srv.Close()

		var ue *upstream.Error
		if !errors.As(err, &ue) || ue.Status != want {
			t.Fatalf("status %d: expected %d upstream error, got %v", upstreamStatus, want, err)
		}
	}
}

func TestScoreIsStable(t *testing.T) {
	score, reason := Score(nil, "Software Engineer", "anything")
	if score != 70 || reason != "Matches your search for Software Engineer" {
		t.Fatalf("got %d %q", score, reason)
	}

	a, _ := Score([]string{"Go", "go", "Kubernetes"}, "x", "Go developer")
	b, _ := Score([]string{"Go", "go", "Kubernetes"}, "x", "Go developer")
	if a != b || a != 74 {
		t.Fatalf("score should be stable and deduplicated, got %d and %d", a, b)
	}
}
