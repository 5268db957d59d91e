// Package layout 将简历文档排版为可打印的 HTML，每种版式一个模板，共享同一份规范化数据。
package layout

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"resumeBuilder/internal/resume"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("layouts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.html"),
)

// RenderHTML 以指定版式渲染文档；未识别的版式回落到 modern。
// 各版式自行决定段落顺序，空段落由模板整体省略。
func RenderHTML(doc *resume.Document, layout resume.LayoutType) ([]byte, error) {
	view := Build(doc)
	view.Layout = layout.OrDefault()

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(view.Layout), view); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", view.Layout, err)
	}
	return buf.Bytes(), nil
}
