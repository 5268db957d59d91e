package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
)

const downloadLinkTTL = 5 * time.Minute

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type exportRepository interface {
	Create(ctx context.Context, exp *database.Export) error
	Get(ctx context.Context, id string) (*database.Export, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

type urlPresigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
}

// ExportHandler 创建异步导出任务并查询其状态。
type ExportHandler struct {
	resumes  resumeReader
	exports  exportRepository
	queue    taskEnqueuer
	storage  urlPresigner
	maxRetry int
	logger   *slog.Logger
}

func NewExportHandler(resumes resumeReader, exports exportRepository, queue taskEnqueuer, storage urlPresigner, maxRetry int, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		resumes:  resumes,
		exports:  exports,
		queue:    queue,
		storage:  storage,
		maxRetry: maxRetry,
		logger:   logger,
	}
}

type createExportRequest struct {
	ResumeID   string `json:"resumeId" binding:"required"`
	LayoutType string `json:"layoutType"`
}

type exportResponse struct {
	ExportID    string    `json:"exportId"`
	ResumeID    string    `json:"resumeId"`
	LayoutType  string    `json:"layoutType"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateExport 校验所有权、记录导出并将渲染任务入队，立即返回 202。
func (h *ExportHandler) CreateExport(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "resumeId is required")
		return
	}

	ctx := c.Request.Context()
	logger := h.log(c)

	doc, err := h.resumes.GetOwned(ctx, req.ResumeID, userID)
	if err != nil {
		respondError(c, logger, err, "Not authorized to access this resume")
		return
	}

	layout := doc.LayoutType
	if req.LayoutType != "" {
		layout = resume.LayoutType(req.LayoutType)
	}
	layout = layout.OrDefault()

	exp := &database.Export{
		ID:         uuid.NewString(),
		ResumeID:   doc.ID,
		OwnerID:    userID,
		LayoutType: string(layout),
	}
	if err := h.exports.Create(ctx, exp); err != nil {
		logger.Error("create export record failed", slog.Any("error", err))
		Internal(c, "failed to create export")
		return
	}

	task, err := tasks.NewExportPDFTask(tasks.ExportPDFPayload{
		ExportID:      exp.ID,
		ResumeID:      doc.ID,
		OwnerID:       userID,
		LayoutType:    string(layout),
		CorrelationID: middleware.GetCorrelationID(c),
	}, asynq.MaxRetry(h.maxRetry))
	if err != nil {
		h.failExport(ctx, logger, exp.ID, err)
		Internal(c, "failed to create task")
		return
	}

	info, err := h.queue.EnqueueContext(ctx, task)
	if err != nil {
		h.failExport(ctx, logger, exp.ID, err)
		Internal(c, "failed to enqueue export")
		return
	}

	logger.Info("export enqueued",
		slog.String("export_id", exp.ID),
		slog.String("resume_id", doc.ID),
		slog.String("task_id", info.ID),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"message":  "PDF export request accepted",
		"exportId": exp.ID,
		"taskId":   info.ID,
		"status":   exp.Status,
	})
}

// GetExport 返回导出状态，完成时附带短期有效的下载链接。
func (h *ExportHandler) GetExport(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	exp, err := h.exports.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrExportNotFound) {
			NotFound(c, "Export not found")
			return
		}
		h.log(c).Error("load export failed", slog.Any("error", err))
		Internal(c, "failed to load export")
		return
	}
	if exp.OwnerID != userID {
		Forbidden(c, "Not authorized to access this export")
		return
	}

	resp := exportResponse{
		ExportID:   exp.ID,
		ResumeID:   exp.ResumeID,
		LayoutType: exp.LayoutType,
		Status:     exp.Status,
		Error:      exp.Error,
		CreatedAt:  exp.CreatedAt,
		UpdatedAt:  exp.UpdatedAt,
	}
	if exp.Status == database.ExportCompleted && exp.ObjectKey != "" {
		url, err := h.storage.GeneratePresignedURL(ctx, exp.ObjectKey, downloadLinkTTL, fmt.Sprintf("resume-%s.pdf", exp.LayoutType))
		if err != nil {
			h.log(c).Error("presign export failed", slog.String("export_id", exp.ID), slog.Any("error", err))
			Internal(c, "failed to generate download link")
			return
		}
		resp.DownloadURL = url
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ExportHandler) failExport(ctx context.Context, logger *slog.Logger, id string, cause error) {
	logger.Error("enqueue export failed", slog.String("export_id", id), slog.Any("error", cause))
	if err := h.exports.MarkFailed(ctx, id, cause.Error()); err != nil {
		logger.Warn("mark export failed", slog.String("export_id", id), slog.Any("error", err))
	}
}

func (h *ExportHandler) log(c *gin.Context) *slog.Logger {
	return loggerFromContext(c, h.logger)
}
