package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"

	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/render"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

type resumeReader interface {
	GetByID(ctx context.Context, id string) (*resume.Document, error)
}

type pdfRenderer interface {
	Render(ctx context.Context, doc *resume.Document, lt resume.LayoutType) ([]byte, error)
}

type objectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

type exportRecorder interface {
	MarkCompleted(ctx context.Context, id, objectKey string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// ExportTaskHandler 消费 export:pdf 任务：渲染、上传、更新导出记录并通知用户。
type ExportTaskHandler struct {
	resumes  resumeReader
	renderer pdfRenderer
	storage  objectUploader
	exports  exportRecorder
	notifier Notifier
	logger   *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	resumes resumeReader,
	renderer pdfRenderer,
	storage objectUploader,
	exports exportRecorder,
	notifier Notifier,
	logger *slog.Logger,
) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{
		resumes:  resumes,
		renderer: renderer,
		storage:  storage,
		exports:  exports,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseExportPDFPayload(t)
	if err != nil {
		h.logger.Error("invalid export payload", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("export_id", payload.ExportID),
		slog.String("resume_id", payload.ResumeID),
		slog.Uint64("user_id", uint64(payload.OwnerID)),
	)
	log.Info("starting pdf export task")

	code := errcode.SystemError
	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}
		h.fail(ctx, log, payload, code, retErr)
	}()

	doc, err := h.resumes.GetByID(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, resume.ErrNotFound) {
			code = errcode.ResumeMissing
			return fmt.Errorf("%w: resume %s no longer exists", asynq.SkipRetry, payload.ResumeID)
		}
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}
	if doc.OwnerID != payload.OwnerID {
		code = errcode.ResumeMissing
		return fmt.Errorf("%w: resume %s is not owned by user %d", asynq.SkipRetry, payload.ResumeID, payload.OwnerID)
	}

	layout := resume.LayoutType(payload.LayoutType)
	if layout == "" {
		layout = doc.LayoutType
	}
	pdfBytes, err := h.renderer.Render(ctx, doc, layout)
	if err != nil {
		var verr *resume.ValidationError
		switch {
		case errors.As(err, &verr):
			code = errcode.InvalidResume
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		case errors.Is(err, render.ErrTimeout):
			code = errcode.RenderTimedOut
		default:
			code = errcode.RenderFailed
		}
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectKey := storage.ExportKey(payload.OwnerID, payload.ResumeID, payload.ExportID)
	if _, err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		code = errcode.UploadFailed
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.exports.MarkCompleted(ctx, payload.ExportID, objectKey); err != nil {
		log.Error("update export failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        "completed",
		ExportID:      payload.ExportID,
		ResumeID:      payload.ResumeID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.notifier.Notify(ctx, payload.OwnerID, notify); err != nil {
		// 导出已完成，通知失败不影响结果，前端可轮询 /exports/:id。
		log.Warn("publish export notification failed", slog.Any("error", err))
	}

	log.Info("pdf export task completed", slog.Int("bytes", len(pdfBytes)), slog.String("object_key", objectKey))
	return nil
}

func (h *ExportTaskHandler) fail(ctx context.Context, log *slog.Logger, payload tasks.ExportPDFPayload, code int, cause error) {
	reason := strings.TrimSpace(strings.TrimPrefix(cause.Error(), asynq.SkipRetry.Error()+": "))
	if err := h.exports.MarkFailed(ctx, payload.ExportID, reason); err != nil {
		log.Error("mark export failed", slog.Any("error", err))
	}
	notify := ExportNotifyMessage{
		Status:        "error",
		ExportID:      payload.ExportID,
		ResumeID:      payload.ResumeID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     code,
		ErrorMessage:  reason,
	}
	if err := h.notifier.Notify(ctx, payload.OwnerID, notify); err != nil {
		log.Error("publish export error notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
