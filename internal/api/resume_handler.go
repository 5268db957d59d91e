package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
)

type resumeService interface {
	Create(ctx context.Context, ownerID uint, f resume.Fields) (*resume.Document, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]resume.Document, error)
	GetOwned(ctx context.Context, id string, callerID uint) (*resume.Document, error)
	Update(ctx context.Context, id string, callerID uint, f resume.Fields) (*resume.Document, error)
	Delete(ctx context.Context, id string, callerID uint) error
}

type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

type exportCleaner interface {
	DeleteByResume(ctx context.Context, resumeID string) (int64, error)
}

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	resumes resumeService
	objects prefixDeleter
	exports exportCleaner
	logger  *slog.Logger
}

// NewResumeHandler 构造 ResumeHandler；objects 与 exports 可为 nil。
func NewResumeHandler(resumes resumeService, objects prefixDeleter, exports exportCleaner, logger *slog.Logger) *ResumeHandler {
	return &ResumeHandler{
		resumes: resumes,
		objects: objects,
		exports: exports,
		logger:  logger,
	}
}

// CreateResume 以调用方为所有者保存一份新简历。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	fields, ok := h.bindFields(c)
	if !ok {
		return
	}

	doc, err := h.resumes.Create(c.Request.Context(), userID, fields)
	if err != nil {
		respondError(c, h.log(c), err, "Not authorized to access this resume")
		return
	}

	h.log(c).Info("resume created", slog.String("resume_id", doc.ID), slog.Uint64("user_id", uint64(userID)))
	c.JSON(http.StatusCreated, doc)
}

// ListResumes 列出 ownerId 的全部简历，仅允许本人查看。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ownerID, err := strconv.ParseUint(c.Param("ownerId"), 10, 64)
	if err != nil || uint(ownerID) != userID {
		Forbidden(c, "Not authorized to access these resumes")
		return
	}

	docs, err := h.resumes.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log(c), err, "Not authorized to access these resumes")
		return
	}
	c.JSON(http.StatusOK, docs)
}

// GetResume 返回单份简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.resumes.GetOwned(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, h.log(c), err, "Not authorized to access this resume")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateResume 整段替换请求中提供的字段。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	fields, ok := h.bindFields(c)
	if !ok {
		return
	}

	doc, err := h.resumes.Update(c.Request.Context(), c.Param("id"), userID, fields)
	if err != nil {
		respondError(c, h.log(c), err, "Not authorized to update this resume")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteResume 删除简历，并尽力清理其导出产物。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	if err := h.resumes.Delete(ctx, id, userID); err != nil {
		respondError(c, h.log(c), err, "Not authorized to delete this resume")
		return
	}

	h.cleanupExports(ctx, c, userID, id)
	c.JSON(http.StatusOK, gin.H{"message": "Resume deleted successfully"})
}

func (h *ResumeHandler) cleanupExports(ctx context.Context, c *gin.Context, ownerID uint, resumeID string) {
	logger := h.log(c).With(slog.String("resume_id", resumeID))
	if h.objects != nil {
		if err := h.objects.DeletePrefix(ctx, storage.ExportPrefix(ownerID, resumeID)); err != nil {
			logger.Warn("delete export objects failed", slog.Any("error", err))
		}
	}
	if h.exports != nil {
		if _, err := h.exports.DeleteByResume(ctx, resumeID); err != nil {
			logger.Warn("delete export records failed", slog.Any("error", err))
		}
	}
}

func (h *ResumeHandler) bindFields(c *gin.Context) (resume.Fields, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		BadRequest(c, "failed to read request body")
		return resume.Fields{}, false
	}
	fields, err := resume.DecodeFields(raw)
	if err != nil {
		respondError(c, h.log(c), err, "")
		return resume.Fields{}, false
	}
	return fields, true
}

func (h *ResumeHandler) log(c *gin.Context) *slog.Logger {
	return loggerFromContext(c, h.logger)
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	default:
		return 0, false
	}
}
