package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Printer 将 HTML 打印为 PDF。
type Printer interface {
	Print(ctx context.Context, html []byte) ([]byte, error)
}

// A4 纸张尺寸（英寸）与零边距，版式自行控制内边距。
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
)

// RodPrinter 每次打印启动一个独立的无头 Chromium，结束或取消时销毁进程及其用户目录。
type RodPrinter struct {
	bin    string
	logger *slog.Logger
}

// NewRodPrinter 构造打印器；bin 为空时自动查找本机浏览器。
func NewRodPrinter(bin string, logger *slog.Logger) *RodPrinter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodPrinter{bin: bin, logger: logger}
}

func (p *RodPrinter) Print(ctx context.Context, html []byte) (_ []byte, err error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("font-render-hinting", "none")

	if p.bin != "" {
		launch = launch.Bin(p.bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}
	defer launch.Cleanup()

	// 调用方取消时立即结束浏览器进程，避免残留。
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			launch.Kill()
		case <-done:
		}
	}()

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if _, evalErr := page.Timeout(5 * time.Second).Eval(`() => document.fonts ? document.fonts.ready.then(() => true) : true`); evalErr != nil {
		p.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	return exportPDF(page)
}

func exportPDF(page *rod.Page) ([]byte, error) {
	zero := 0.0
	width, height := paperWidthInches, paperHeightInches
	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        &width,
		PaperHeight:       &height,
		MarginTop:         &zero,
		MarginBottom:      &zero,
		MarginLeft:        &zero,
		MarginRight:       &zero,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}
