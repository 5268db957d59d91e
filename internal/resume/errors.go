package resume

import (
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("resume not found")
	ErrForbidden = errors.New("not authorized to access this resume")
	ErrConflict  = errors.New("resume was modified concurrently")

	// ErrVersionConflict is returned by Store.Update when the stored version moved on.
	ErrVersionConflict = errors.New("resume version conflict")
)

// FieldError 描述单个字段的校验失败原因。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 表示结构上不合法的输入。
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}
