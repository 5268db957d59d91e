package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportPDF = "export:pdf"
)

// ExportPDFPayload 描述一次异步导出所需的信息。
type ExportPDFPayload struct {
	ExportID      string `json:"export_id"`
	ResumeID      string `json:"resume_id"`
	OwnerID       uint   `json:"owner_id"`
	LayoutType    string `json:"layout_type"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportPDFTask 构造导出任务，任务 ID 与导出记录一致以避免重复入队。
func NewExportPDFTask(p ExportPDFPayload, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	opts = append([]asynq.Option{asynq.TaskID(p.ExportID)}, opts...)
	return asynq.NewTask(TypeExportPDF, payload, opts...), nil
}

// ParseExportPDFPayload decodes a task payload.
func ParseExportPDFPayload(t *asynq.Task) (ExportPDFPayload, error) {
	var p ExportPDFPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal export payload: %w", err)
	}
	if p.ExportID == "" || p.ResumeID == "" {
		return p, fmt.Errorf("export payload missing ids")
	}
	return p, nil
}
