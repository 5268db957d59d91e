package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"resumeBuilder/internal/upstream"
)

const analyzeSystemPrompt = "You are an expert resume reviewer focused on ATS compatibility. Respond with a single JSON object only."

const analyzePromptTemplate = `Analyze the following resume content and provide a structured JSON response.

Resume Content:
%s

The response must be a valid JSON object with the following structure:
{
  "score": <number 0-100>,
  "strengths": [<string array of key strengths>],
  "improvements": [<string array of areas for improvement>],
  "keywords": [<string array of missing important keywords based on the content>],
  "formatting": "<string with feedback on structure and formatting>"
}

Focus on ATS compatibility, keyword optimization, and overall content quality.`

// Analysis 是简历分析结果。
type Analysis struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Keywords     []string `json:"keywords"`
	Formatting   string   `json:"formatting"`
}

// SampleAnalysis 在未配置模型时返回的固定结果。
func SampleAnalysis() Analysis {
	return Analysis{
		Score: 75,
		Strengths: []string{
			"Strong technical skills listed",
			"Clear experience descriptions",
			"Good use of action verbs",
		},
		Improvements: []string{
			"Add more quantifiable results",
			"Include a summary section",
			"Optimize for more industry keywords",
		},
		Keywords:   []string{"Leadership", "Agile", "Cloud Computing"},
		Formatting: "The structure is generally good, but consider adding more white space for readability.",
	}
}

// Analyzer 对简历内容打分并给出改进建议。
type Analyzer struct {
	model  Model
	logger *slog.Logger
}

// NewAnalyzer 构造 Analyzer；model 为 nil 时始终返回示例结果。
func NewAnalyzer(model Model, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{logger: logger}
	// 避免 typed nil 被当作已配置的模型
	if m, ok := model.(*OpenAIModel); !ok || m != nil {
		a.model = model
	}
	return a
}

// Enabled reports whether a real model is configured.
func (a *Analyzer) Enabled() bool {
	return a.model != nil
}

// Analyze 分析任意 JSON 形式的简历内容。
func (a *Analyzer) Analyze(ctx context.Context, content json.RawMessage) (*Analysis, error) {
	if !a.Enabled() {
		a.logger.Info("no AI model configured, returning sample analysis")
		sample := SampleAnalysis()
		return &sample, nil
	}

	text, err := a.model.Complete(ctx, analyzeSystemPrompt, fmt.Sprintf(analyzePromptTemplate, string(content)))
	if err != nil {
		a.logger.Error("resume analysis failed", slog.Any("error", err))
		return nil, &upstream.Error{Service: "ai", Status: http.StatusBadGateway, Message: "Failed to analyze resume", Err: err}
	}

	var out Analysis
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &out); err != nil {
		a.logger.Error("resume analysis returned malformed JSON", slog.Any("error", err))
		return nil, &upstream.Error{Service: "ai", Status: http.StatusBadGateway, Message: "Failed to analyze resume", Err: err}
	}
	out.normalize()
	return &out, nil
}

func (a *Analysis) normalize() {
	if a.Score < 0 {
		a.Score = 0
	}
	if a.Score > 100 {
		a.Score = 100
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Improvements == nil {
		a.Improvements = []string{}
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
}

var codeFence = regexp.MustCompile("```(?:json)?\\n?|\\n?```")

// StripCodeFence 去掉模型输出中可能包裹的 markdown 代码块标记。
func StripCodeFence(s string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(s, ""))
}
