package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Default job search parameters.
const (
	DefaultWhat  = "Software Engineer"
	DefaultWhere = "Remote"
)

const searchExcerptLimit = 1000

const searchSystemPrompt = "You extract job search parameters from resumes. Respond with a single JSON object only."

const searchPromptTemplate = `Extract job search parameters from this resume data.
Return ONLY a JSON object with 'what' (job titles/keywords) and 'where' (location preference, default to 'Remote' if unclear).
Resume: %s`

// SearchParams 是职位检索的关键词与地点。
type SearchParams struct {
	What  string `json:"what"`
	Where string `json:"where"`
}

// ExtractSearchParams 从简历前 1000 个字符中提取检索参数，任何失败都回落到默认值。
func (a *Analyzer) ExtractSearchParams(ctx context.Context, resumeJSON []byte) SearchParams {
	params := SearchParams{What: DefaultWhat, Where: DefaultWhere}
	if !a.Enabled() {
		return params
	}

	excerpt := string(resumeJSON)
	if len(excerpt) > searchExcerptLimit {
		excerpt = excerpt[:searchExcerptLimit] + "..."
	}

	text, err := a.model.Complete(ctx, searchSystemPrompt, fmt.Sprintf(searchPromptTemplate, excerpt))
	if err != nil {
		a.logger.Warn("search parameter extraction failed, using defaults", slog.Any("error", err))
		return params
	}

	var got SearchParams
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &got); err != nil {
		a.logger.Warn("search parameter extraction returned malformed JSON, using defaults", slog.Any("error", err))
		return params
	}
	if w := strings.TrimSpace(got.What); w != "" {
		params.What = w
	}
	if w := strings.TrimSpace(got.Where); w != "" {
		params.Where = w
	}
	return params
}
