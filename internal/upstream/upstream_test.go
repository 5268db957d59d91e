package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestClassify(t *testing.T) {
	msgs := Messages{NotFound: "user not found", RateLimited: "slow down", Failed: "boom"}
	cases := map[int]struct {
		status int
		msg    string
	}{
		http.StatusNotFound:            {http.StatusNotFound, "user not found"},
		http.StatusForbidden:           {http.StatusTooManyRequests, "slow down"},
		http.StatusTooManyRequests:     {http.StatusTooManyRequests, "slow down"},
		http.StatusInternalServerError: {http.StatusBadGateway, "boom"},
		0:                              {http.StatusBadGateway, "boom"},
	}
	for in, want := range cases {
		got := Classify("github", in, msgs, nil)
		if got.Status != want.status || got.Message != want.msg {
			t.Errorf("Classify(%d) = %d %q, want %d %q", in, got.Status, got.Message, want.status, want.msg)
		}
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.URL.Query().Get("q") != "go" || r.Header.Get("X-Test") != "1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"name":"gopher"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(0)
	var out struct {
		Name string `json:"name"`
	}
	err := GetJSON(context.Background(), client, srv.URL+"/ok", url.Values{"q": {"go"}}, http.Header{"X-Test": {"1"}}, &out)
	if err != nil || out.Name != "gopher" {
		t.Fatalf("GetJSON: %v %+v", err, out)
	}

	err = GetJSON(context.Background(), client, srv.URL+"/missing", nil, nil, &out)
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}

	wrapped := Classify("svc", StatusOf(err), Messages{}, err)
	var se *StatusError
	if !errors.As(wrapped, &se) {
		t.Fatalf("classified error should unwrap to the status error")
	}
}

func TestGetJSONCallerAcceptReplacesDefault(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values("Accept")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	header := http.Header{"Accept": {"application/vnd.github.v3+json"}}
	if err := GetJSON(context.Background(), NewHTTPClient(0), srv.URL, nil, header, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(got) != 1 || got[0] != "application/vnd.github.v3+json" {
		t.Fatalf("Accept = %q, want only the caller's value", got)
	}

	if err := GetJSON(context.Background(), NewHTTPClient(0), srv.URL, nil, nil, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(got) != 1 || got[0] != "application/json" {
		t.Fatalf("default Accept = %q", got)
	}
}
