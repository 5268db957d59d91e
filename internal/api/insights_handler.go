package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/ai"
	"resumeBuilder/internal/github"
	"resumeBuilder/internal/jobs"
	"resumeBuilder/internal/resume"
)

type resumeAnalyzer interface {
	Analyze(ctx context.Context, content json.RawMessage) (*ai.Analysis, error)
}

type jobRecommender interface {
	Recommend(ctx context.Context, resumeJSON []byte, skills []string) ([]jobs.Job, error)
}

type profileEnhancer interface {
	Enhance(ctx context.Context, username, linkedInURL string) (*github.Enhancement, error)
}

// InsightsHandler 提供 AI 分析、职位推荐与 GitHub 资料补全。
type InsightsHandler struct {
	resumes  resumeReader
	analyzer resumeAnalyzer
	jobs     jobRecommender
	profiles profileEnhancer
	logger   *slog.Logger
}

func NewInsightsHandler(resumes resumeReader, analyzer resumeAnalyzer, recommender jobRecommender, profiles profileEnhancer, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{
		resumes:  resumes,
		analyzer: analyzer,
		jobs:     recommender,
		profiles: profiles,
		logger:   logger,
	}
}

type analyzeRequest struct {
	ResumeContent json.RawMessage `json:"resumeContent"`
	ResumeID      string          `json:"resumeId"`
}

// AnalyzeResume 分析内联内容，或分析调用方拥有的已保存简历。
func (h *InsightsHandler) AnalyzeResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req analyzeRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	content := req.ResumeContent
	if req.ResumeID != "" {
		doc, err := h.resumes.GetOwned(ctx, req.ResumeID, userID)
		if err != nil {
			respondError(c, h.log(c), err, "Not authorized to access this resume")
			return
		}
		if content, err = json.Marshal(doc); err != nil {
			Internal(c, "Failed to analyze resume")
			return
		}
	}
	if !hasJSONValue(content) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Resume content is required"})
		return
	}

	analysis, err := h.analyzer.Analyze(ctx, content)
	if err != nil {
		respondError(c, h.log(c), err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

type recommendationsRequest struct {
	ResumeData json.RawMessage `json:"resumeData"`
}

// Recommendations 返回与简历匹配的职位。
func (h *InsightsHandler) Recommendations(c *gin.Context) {
	var req recommendationsRequest
	_ = c.ShouldBindJSON(&req)

	data := []byte("{}")
	var skills []string
	if hasJSONValue(req.ResumeData) {
		data = req.ResumeData
		var fields resume.Fields
		if err := json.Unmarshal(req.ResumeData, &fields); err == nil && fields.Skills != nil {
			skills = fields.Skills.Technical
		}
	}

	found, err := h.jobs.Recommend(c.Request.Context(), data, skills)
	if err != nil {
		respondError(c, h.log(c), err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": found})
}

type enhanceRequest struct {
	GitHubUsername string `json:"githubUsername"`
	LinkedInURL    string `json:"linkedinUrl"`
}

// EnhanceProfile 从 GitHub 拉取资料生成简历字段。
func (h *InsightsHandler) EnhanceProfile(c *gin.Context) {
	var req enhanceRequest
	_ = c.ShouldBindJSON(&req)

	out, err := h.profiles.Enhance(c.Request.Context(), req.GitHubUsername, req.LinkedInURL)
	if err != nil {
		respondError(c, h.log(c), err, "")
		return
	}

	var linkedInURL *string
	if out.LinkedInURL != "" {
		linkedInURL = &out.LinkedInURL
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         out.Data,
		"linkedinNote": out.LinkedInNote,
		"linkedinUrl":  linkedInURL,
	})
}

func (h *InsightsHandler) log(c *gin.Context) *slog.Logger {
	return loggerFromContext(c, h.logger)
}
