package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/render"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/upstream"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// respondError 将领域错误映射为 HTTP 响应；forbidden 为所有权不符时的提示。
func respondError(c *gin.Context, logger *slog.Logger, err error, forbidden string) {
	var (
		verr *resume.ValidationError
		rerr *render.Error
		uerr *upstream.Error
	)
	switch {
	case errors.As(err, &verr):
		msg := "Validation Error"
		if len(verr.Errors) == 1 {
			msg = verr.Errors[0].Message
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": msg, "errors": verr.Errors})
	case errors.Is(err, resume.ErrNotFound):
		NotFound(c, "Resume not found")
	case errors.Is(err, resume.ErrForbidden):
		Forbidden(c, forbidden)
	case errors.Is(err, resume.ErrConflict):
		Conflict(c, "Resume was modified concurrently, please retry")
	case errors.As(err, &rerr):
		logger.Error("render failed", slog.String("op", rerr.Op), slog.Any("error", err))
		if errors.Is(err, render.ErrTimeout) {
			Internal(c, "PDF generation timed out")
			return
		}
		Internal(c, "Failed to generate PDF")
	case errors.As(err, &uerr):
		logger.Warn("upstream request failed", slog.String("service", uerr.Service), slog.Any("error", err))
		Error(c, uerr.Status, uerr.Message)
	default:
		logger.Error("request failed", slog.Any("error", err))
		Internal(c, "Server error")
	}
}

func loggerFromContext(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if l := middleware.LoggerFromContext(c); l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
