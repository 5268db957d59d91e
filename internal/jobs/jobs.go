// Package jobs 根据简历内容检索并排序职位推荐。
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"resumeBuilder/internal/ai"
	"resumeBuilder/internal/upstream"
)

const DefaultBaseURL = "https://api.adzuna.com/v1/api"

// Job 是返回给前端的职位。
type Job struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	SalaryMin   *float64 `json:"salary_min"`
	SalaryMax   *float64 `json:"salary_max"`
	MatchScore  int      `json:"match_score"`
	MatchReason string   `json:"match_reason"`
}

type paramExtractor interface {
	ExtractSearchParams(ctx context.Context, resumeJSON []byte) ai.SearchParams
}

// Options 配置 Adzuna 客户端。
type Options struct {
	AppID      string
	AppKey     string
	BaseURL    string
	Country    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Recommender 提取检索参数、调用 Adzuna 并为结果打分。
type Recommender struct {
	opts   Options
	params paramExtractor
	logger *slog.Logger
}

// NewRecommender 构造 Recommender。
func NewRecommender(params paramExtractor, opts Options) *Recommender {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = upstream.NewHTTPClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Recommender{opts: opts, params: params, logger: opts.Logger}
}

// Configured reports whether Adzuna credentials are present.
func (r *Recommender) Configured() bool {
	return r.opts.AppID != "" && r.opts.AppKey != ""
}

// Recommend 返回按匹配度降序排列的职位；未配置凭证时返回示例职位。
func (r *Recommender) Recommend(ctx context.Context, resumeJSON []byte, skills []string) ([]Job, error) {
	if !r.Configured() {
		r.logger.Info("no Adzuna credentials configured, returning sample jobs")
		return SampleJobs(), nil
	}

	params := ai.SearchParams{What: ai.DefaultWhat, Where: ai.DefaultWhere}
	if r.params != nil {
		params = r.params.ExtractSearchParams(ctx, resumeJSON)
	}

	results, err := r.search(ctx, params)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(results))
	for _, res := range results {
		job := res.toJob()
		job.MatchScore, job.MatchReason = Score(skills, params.What, job.Title+" "+job.Description)
		jobs = append(jobs, job)
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].MatchScore > jobs[j].MatchScore })
	return jobs, nil
}

type adzunaResponse struct {
	Results []adzunaJob `json:"results"`
}

type adzunaJob struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	RedirectURL string          `json:"redirect_url"`
	SalaryMin   *float64        `json:"salary_min"`
	SalaryMax   *float64        `json:"salary_max"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
}

func (j adzunaJob) toJob() Job {
	return Job{
		ID:          strings.Trim(string(j.ID), `"`),
		Title:       j.Title,
		Company:     j.Company.DisplayName,
		Location:    j.Location.DisplayName,
		Description: j.Description,
		URL:         j.RedirectURL,
		SalaryMin:   j.SalaryMin,
		SalaryMax:   j.SalaryMax,
	}
}

func (r *Recommender) search(ctx context.Context, p ai.SearchParams) ([]adzunaJob, error) {
	endpoint := fmt.Sprintf("%s/jobs/%s/search/1", strings.TrimRight(r.opts.BaseURL, "/"), url.PathEscape(r.opts.Country))
	query := url.Values{
		"app_id":       {r.opts.AppID},
		"app_key":      {r.opts.AppKey},
		"what":         {p.What},
		"where":        {p.Where},
		"content-type": {"application/json"},
	}

	var resp adzunaResponse
	if err := upstream.GetJSON(ctx, r.opts.HTTPClient, endpoint, query, nil, &resp); err != nil {
		r.logger.Error("job search failed", slog.String("what", p.What), slog.Any("error", err))
		return nil, upstream.Classify("adzuna", upstream.StatusOf(err), upstream.Messages{
			NotFound:    "No jobs found",
			RateLimited: "Job search rate limit exceeded. Please try again later.",
			Failed:      "Failed to fetch jobs",
		}, err)
	}
	return resp.Results, nil
}

// Score 按技术技能在职位文本中的命中比例计算 50 到 99 的匹配分。
func Score(skills []string, what, text string) (int, string) {
	haystack := strings.ToLower(text)
	var matched []string
	seen := map[string]struct{}{}
	total := 0
	for _, s := range skills {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		total++
		if strings.Contains(haystack, key) {
			matched = append(matched, strings.TrimSpace(s))
		}
	}

	if total == 0 {
		return 70, "Matches your search for " + what
	}
	score := 50 + len(matched)*49/total
	if len(matched) == 0 {
		return score, "Related to your search for " + what
	}
	if len(matched) > 3 {
		matched = matched[:3]
	}
	return score, "Matches your skills in " + strings.Join(matched, ", ")
}

// SampleJobs 是未配置 Adzuna 时返回的示例数据。
func SampleJobs() []Job {
	f := func(v float64) *float64 { return &v }
	return []Job{
		{
			ID:          "1",
			Title:       "Senior React Developer",
			Company:     "TechFlow Solutions",
			Location:    "Remote",
			Description: "We are looking for an experienced React developer to join our team...",
			URL:         "#",
			SalaryMin:   f(120000),
			SalaryMax:   f(150000),
			MatchScore:  95,
			MatchReason: "Strong match with your React and Frontend experience.",
		},
		{
			ID:          "2",
			Title:       "Full Stack Engineer",
			Company:     "InnovateCorp",
			Location:    "New York, NY (Hybrid)",
			Description: "Join our fast-paced team building the next generation of fintech...",
			URL:         "#",
			SalaryMin:   f(130000),
			SalaryMax:   f(160000),
			MatchScore:  88,
			MatchReason: "Good overlap with your Node.js and database skills.",
		},
		{
			ID:          "3",
			Title:       "Frontend Engineer",
			Company:     "Creative Digital",
			Location:    "Remote",
			Description: "Looking for a creative frontend engineer with an eye for design...",
			URL:         "#",
			SalaryMin:   f(100000),
			SalaryMax:   f(130000),
			MatchScore:  82,
			MatchReason: "Matches your desire for creative UI work.",
		},
	}
}
