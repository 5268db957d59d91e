// Package github 从 GitHub 公开资料生成简历字段。
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/upstream"
)

const DefaultBaseURL = "https://api.github.com"

const (
	repoFetchLimit   = 10
	projectLimit     = 5
	noDescription    = "No description provided"
	linkedInSaved    = "LinkedIn URL saved. Please manually input LinkedIn data as direct API access is limited."
	linkedInNotGiven = "No LinkedIn URL provided."
)

var errorMessages = upstream.Messages{
	NotFound:    "GitHub user not found",
	RateLimited: "GitHub API rate limit exceeded. Please try again later.",
	Failed:      "Failed to fetch GitHub profile",
}

type user struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Location    string `json:"location"`
	Blog        string `json:"blog"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

type repo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	HTMLURL     string `json:"html_url"`
	Stars       int    `json:"stargazers_count"`
	Fork        bool   `json:"fork"`
}

// Stats 是 GitHub 账号的统计信息。
type Stats struct {
	PublicRepos int `json:"publicRepos"`
	Followers   int `json:"followers"`
	Following   int `json:"following"`
}

// Profile 是可直接合并进简历的数据。
type Profile struct {
	PersonalInfo resume.PersonalInfo `json:"personalInfo"`
	Summary      string              `json:"summary"`
	Projects     []resume.Project    `json:"projects"`
	Skills       resume.Skills       `json:"skills"`
	GitHubStats  Stats               `json:"githubStats"`
}

// Enhancement 是 /profiles/enhance 的响应体。
type Enhancement struct {
	Data         Profile `json:"data"`
	LinkedInNote string  `json:"linkedinNote"`
	LinkedInURL  string  `json:"linkedinUrl,omitempty"`
}

// Client 调用 GitHub REST API。
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient 构造 Client；token 非空时通过 oauth2 附带认证头以提高限额。
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = upstream.NewHTTPClient(10 * time.Second)
	}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		authed.Timeout = httpClient.Timeout
		httpClient = authed
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Enhance 拉取用户资料与最近更新的仓库，并附带 LinkedIn 说明。
func (c *Client) Enhance(ctx context.Context, username, linkedInURL string) (*Enhancement, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &resume.ValidationError{Errors: []resume.FieldError{{Field: "githubUsername", Message: "GitHub username is required"}}}
	}

	profile, err := c.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	out := &Enhancement{Data: *profile, LinkedInNote: linkedInNotGiven}
	if u := strings.TrimSpace(linkedInURL); u != "" {
		out.LinkedInNote = linkedInSaved
		out.LinkedInURL = u
	}
	return out, nil
}

// FetchProfile 读取资料并映射为简历字段。
func (c *Client) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	header := http.Header{"Accept": {"application/vnd.github.v3+json"}}
	escaped := url.PathEscape(username)

	var u user
	if err := upstream.GetJSON(ctx, c.http, c.baseURL+"/users/"+escaped, nil, header, &u); err != nil {
		return nil, c.classify(username, err)
	}

	var repos []repo
	query := url.Values{"sort": {"updated"}, "per_page": {fmt.Sprint(repoFetchLimit)}}
	if err := upstream.GetJSON(ctx, c.http, c.baseURL+"/users/"+escaped+"/repos", query, header, &repos); err != nil {
		return nil, c.classify(username, err)
	}

	return buildProfile(u, repos), nil
}

func (c *Client) classify(username string, err error) error {
	ue := upstream.Classify("github", upstream.StatusOf(err), errorMessages, err)
	c.logger.Warn("github request failed", slog.String("username", username), slog.Int("status", ue.Status), slog.Any("error", err))
	return ue
}

func buildProfile(u user, repos []repo) *Profile {
	fullName := u.Name
	if strings.TrimSpace(fullName) == "" {
		fullName = u.Login
	}

	p := &Profile{
		PersonalInfo: resume.PersonalInfo{
			FullName:  fullName,
			Location:  u.Location,
			Portfolio: u.Blog,
			GitHub:    u.HTMLURL,
		},
		Summary:  u.Bio,
		Projects: []resume.Project{},
		Skills:   resume.Skills{Technical: []string{}, Soft: []string{}},
		GitHubStats: Stats{
			PublicRepos: u.PublicRepos,
			Followers:   u.Followers,
			Following:   u.Following,
		},
	}

	seen := map[string]struct{}{}
	for _, r := range repos {
		if r.Language == "" {
			continue
		}
		if _, ok := seen[r.Language]; ok {
			continue
		}
		seen[r.Language] = struct{}{}
		p.Skills.Technical = append(p.Skills.Technical, r.Language)
	}

	owned := make([]repo, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			owned = append(owned, r)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].Stars > owned[j].Stars })
	if len(owned) > projectLimit {
		owned = owned[:projectLimit]
	}
	for _, r := range owned {
		desc := r.Description
		if desc == "" {
			desc = noDescription
		}
		tech := resume.Technologies{}
		if r.Language != "" {
			tech = resume.Technologies{r.Language}
		}
		p.Projects = append(p.Projects, resume.Project{
			Name:         r.Name,
			Description:  desc,
			Technologies: tech,
			Link:         r.HTMLURL,
			GitHub:       r.HTMLURL,
		})
	}
	return p
}
