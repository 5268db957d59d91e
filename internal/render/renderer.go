// Package render 将简历文档打印为确定性的 A4 PDF。
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"resumeBuilder/internal/layout"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/resume"
)

const (
	DefaultTimeout       = 45 * time.Second
	DefaultMaxConcurrent = 2
)

// ErrTimeout 表示渲染在限定时间内未完成。
var ErrTimeout = errors.New("render timed out")

// Options configures a Renderer. Zero values fall back to the defaults above.
type Options struct {
	Timeout       time.Duration
	MaxConcurrent int64
	Logger        *slog.Logger
}

// Renderer 负责 文档 -> HTML -> PDF 的完整流程，限制并发与单次耗时。
type Renderer struct {
	printer Printer
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
}

func New(printer Printer, opts Options) *Renderer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Renderer{
		printer: printer,
		sem:     semaphore.NewWeighted(opts.MaxConcurrent),
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Render 以 lt 版式渲染文档；lt 为空或未识别时按 modern 处理。
// 返回的字节在相同输入下保持一致。
func (r *Renderer) Render(ctx context.Context, doc *resume.Document, lt resume.LayoutType) (data []byte, err error) {
	if doc == nil || doc.PersonalInfo == nil {
		return nil, &Error{Op: "validate", Err: &resume.ValidationError{Errors: []resume.FieldError{
			{Field: "personalInfo", Message: "personalInfo object is required"},
		}}}
	}
	lt = lt.OrDefault()

	start := time.Now()
	op := ""
	defer func() {
		var rerr *Error
		if errors.As(err, &rerr) {
			op = rerr.Op
		}
		metrics.ObserveRender(string(lt), time.Since(start), op)
	}()

	html, err := layout.RenderHTML(doc, lt)
	if err != nil {
		return nil, wrap("markup", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, wrap("acquire", r.contextError(ctx, err))
	}
	defer r.sem.Release(1)

	done := metrics.RenderStarted()
	raw, err := r.printer.Print(ctx, html)
	done()
	if err != nil {
		return nil, wrap("print", r.contextError(ctx, err))
	}

	if err := verify(raw); err != nil {
		return nil, wrap("verify", err)
	}

	out := Normalize(raw)
	r.logger.Debug("resume rendered",
		slog.String("layout", string(lt)),
		slog.Int("bytes", len(out)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// contextError 在超时时返回 ErrTimeout，便于调用方区分。
func (r *Renderer) contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, r.timeout, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
