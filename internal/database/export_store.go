package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrExportNotFound 表示导出记录不存在。
var ErrExportNotFound = errors.New("export not found")

// ExportStore 管理异步导出记录。
type ExportStore struct {
	db *gorm.DB
}

func NewExportStore(db *gorm.DB) *ExportStore {
	return &ExportStore{db: db}
}

func (s *ExportStore) Create(ctx context.Context, exp *Export) error {
	if exp.Status == "" {
		exp.Status = ExportPending
	}
	return s.db.WithContext(ctx).Create(exp).Error
}

func (s *ExportStore) Get(ctx context.Context, id string) (*Export, error) {
	var exp Export
	if err := s.db.WithContext(ctx).First(&exp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}
	return &exp, nil
}

// MarkCompleted 记录产物对象键并将状态置为 completed。
func (s *ExportStore) MarkCompleted(ctx context.Context, id, objectKey string) error {
	return s.setStatus(ctx, id, map[string]any{
		"status":     ExportCompleted,
		"object_key": objectKey,
		"error":      "",
	})
}

func (s *ExportStore) MarkFailed(ctx context.Context, id, reason string) error {
	if len(reason) > 1024 {
		reason = reason[:1024]
	}
	return s.setStatus(ctx, id, map[string]any{
		"status": ExportFailed,
		"error":  reason,
	})
}

func (s *ExportStore) setStatus(ctx context.Context, id string, values map[string]any) error {
	res := s.db.WithContext(ctx).Model(&Export{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrExportNotFound
	}
	return nil
}

// DeleteByResume 删除某份简历的全部导出记录，返回删除条数。
func (s *ExportStore) DeleteByResume(ctx context.Context, resumeID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("resume_id = ?", resumeID).Delete(&Export{})
	return res.RowsAffected, res.Error
}
