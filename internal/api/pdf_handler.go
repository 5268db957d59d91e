package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/resume"
)

type resumeReader interface {
	GetOwned(ctx context.Context, id string, callerID uint) (*resume.Document, error)
}

type pdfRenderer interface {
	Render(ctx context.Context, doc *resume.Document, lt resume.LayoutType) ([]byte, error)
}

// PDFHandler 同步渲染并返回 PDF。
type PDFHandler struct {
	resumes  resumeReader
	renderer pdfRenderer
	logger   *slog.Logger
}

func NewPDFHandler(resumes resumeReader, renderer pdfRenderer, logger *slog.Logger) *PDFHandler {
	return &PDFHandler{resumes: resumes, renderer: renderer, logger: logger}
}

type generatePDFRequest struct {
	ResumeID   string          `json:"resumeId"`
	ResumeData json.RawMessage `json:"resumeData"`
	LayoutType string          `json:"layoutType"`
}

// GeneratePDF 渲染已保存的简历（resumeId 优先）或请求内联的 resumeData。
func (h *PDFHandler) GeneratePDF(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		BadRequest(c, "failed to read request body")
		return
	}
	var req generatePDFRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			BadRequest(c, "invalid request body")
			return
		}
	}

	ctx := c.Request.Context()
	var doc *resume.Document
	switch {
	case strings.TrimSpace(req.ResumeID) != "":
		doc, err = h.resumes.GetOwned(ctx, req.ResumeID, userID)
		if err != nil {
			respondError(c, h.log(c), err, "Not authorized to access this resume")
			return
		}
	case hasJSONValue(req.ResumeData):
		doc, err = resume.DecodeDocument(req.ResumeData)
		if err != nil {
			respondError(c, h.log(c), err, "")
			return
		}
	default:
		BadRequest(c, "Resume data or ID is required")
		return
	}

	// 只看请求中的 layoutType，缺失或未识别时按 modern 渲染。
	layout := resume.LayoutType(req.LayoutType).OrDefault()

	data, err := h.renderer.Render(ctx, doc, layout)
	if err != nil {
		respondError(c, h.log(c), err, "")
		return
	}
	writePDF(c, data, fmt.Sprintf("resume-%s.pdf", layout))
}

// DownloadPDF 以保存时的版式渲染简历，文件名取自 fullName。
func (h *PDFHandler) DownloadPDF(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	doc, err := h.resumes.GetOwned(ctx, c.Param("resumeId"), userID)
	if err != nil {
		respondError(c, h.log(c), err, "Not authorized to download this resume")
		return
	}

	data, err := h.renderer.Render(ctx, doc, doc.LayoutType.OrDefault())
	if err != nil {
		respondError(c, h.log(c), err, "")
		return
	}
	writePDF(c, data, DownloadFilename(doc))
}

func (h *PDFHandler) log(c *gin.Context) *slog.Logger {
	return loggerFromContext(c, h.logger)
}

func hasJSONValue(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) > 0 && !bytes.Equal(v, []byte("null"))
}

func writePDF(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, "application/pdf", data)
}

// DownloadFilename 返回 "<fullName>_Resume.pdf"，姓名为空时为 "Resume_Resume.pdf"。
func DownloadFilename(doc *resume.Document) string {
	name := ""
	if doc.PersonalInfo != nil {
		name = sanitizeFilename(doc.PersonalInfo.FullName)
	}
	if name == "" {
		name = "Resume"
	}
	return name + "_Resume.pdf"
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`"\/:*?<>|`, r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
