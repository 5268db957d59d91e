package resume

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var fieldsSchema = mustCompileSchema(schemaJSON)

func mustCompileSchema(raw []byte) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile resume schema: %v", err))
	}
	return schema
}

// ValidateJSON 校验请求体的结构，返回带字段信息的 ValidationError。
func ValidateJSON(raw []byte) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return newValidationError("(root)", "body must be valid JSON")
	}

	res, err := fieldsSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return newValidationError("(root)", err.Error())
	}
	if res.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, e := range res.Errors() {
		verr.Errors = append(verr.Errors, FieldError{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return verr
}

// DecodeFields validates raw against the resume schema and decodes the provided sections.
func DecodeFields(raw []byte) (Fields, error) {
	var f Fields
	if err := ValidateJSON(raw); err != nil {
		return f, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, newValidationError("(root)", err.Error())
	}
	return f, nil
}

// DecodeDocument 将内联的简历 JSON 解码为文档，用于不落库的直接渲染。
// personalInfo 缺失时保持为 nil，由渲染器报告。
func DecodeDocument(raw []byte) (*Document, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	f.ApplyTo(doc)
	doc.Normalize()
	return doc, nil
}

// CheckLayout rejects layout values outside the four enumerated layouts.
func CheckLayout(l LayoutType) error {
	if l.Valid() {
		return nil
	}
	return newValidationError("layoutType", fmt.Sprintf("must be one of modern, classic, minimal, creative (got %q)", string(l)))
}
