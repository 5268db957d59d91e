package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeBuilder/internal/resume"
)

// resumeContent 是写入 Content 列的段落集合。
type resumeContent struct {
	PersonalInfo   *resume.PersonalInfo   `json:"personalInfo"`
	Summary        string                 `json:"summary"`
	Experience     []resume.Experience    `json:"experience"`
	Education      []resume.Education     `json:"education"`
	Skills         resume.Skills          `json:"skills"`
	Projects       []resume.Project       `json:"projects"`
	Certifications []resume.Certification `json:"certifications"`
}

// ResumeStore 基于 GORM 实现 resume.Store。
type ResumeStore struct {
	db *gorm.DB
}

func NewResumeStore(db *gorm.DB) *ResumeStore {
	return &ResumeStore{db: db}
}

var _ resume.Store = (*ResumeStore)(nil)

func (s *ResumeStore) Insert(ctx context.Context, doc *resume.Document) error {
	row, err := toRow(doc)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *ResumeStore) Get(ctx context.Context, id string) (*resume.Document, error) {
	var row Resume
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resume.ErrNotFound
		}
		return nil, err
	}
	return fromRow(&row)
}

func (s *ResumeStore) ListByOwner(ctx context.Context, ownerID uint) ([]resume.Document, error) {
	var rows []Resume
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]resume.Document, 0, len(rows))
	for i := range rows {
		doc, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Update 仅当库中版本仍为 expectedVersion 时写入。
func (s *ResumeStore) Update(ctx context.Context, doc *resume.Document, expectedVersion int) error {
	row, err := toRow(doc)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&Resume{}).
		Where("id = ? AND version = ?", doc.ID, expectedVersion).
		Updates(map[string]any{
			"layout_type": row.LayoutType,
			"content":     row.Content,
			"version":     row.Version,
			"updated_at":  row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Resume{}).Where("id = ?", doc.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return resume.ErrNotFound
	}
	return resume.ErrVersionConflict
}

func (s *ResumeStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Resume{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return resume.ErrNotFound
	}
	return nil
}

func toRow(doc *resume.Document) (*Resume, error) {
	content, err := json.Marshal(resumeContent{
		PersonalInfo:   doc.PersonalInfo,
		Summary:        doc.Summary,
		Experience:     doc.Experience,
		Education:      doc.Education,
		Skills:         doc.Skills,
		Projects:       doc.Projects,
		Certifications: doc.Certifications,
	})
	if err != nil {
		return nil, fmt.Errorf("encode resume content: %w", err)
	}
	return &Resume{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		LayoutType: string(doc.LayoutType),
		Content:    datatypes.JSON(content),
		Version:    doc.Version,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func fromRow(row *Resume) (*resume.Document, error) {
	var content resumeContent
	if len(row.Content) > 0 {
		if err := json.Unmarshal(row.Content, &content); err != nil {
			return nil, fmt.Errorf("decode resume %s: %w", row.ID, err)
		}
	}
	doc := &resume.Document{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		PersonalInfo:   content.PersonalInfo,
		Summary:        content.Summary,
		Experience:     content.Experience,
		Education:      content.Education,
		Skills:         content.Skills,
		Projects:       content.Projects,
		Certifications: content.Certifications,
		LayoutType:     resume.LayoutType(row.LayoutType),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
		Version:        row.Version,
	}
	if doc.PersonalInfo == nil {
		doc.PersonalInfo = &resume.PersonalInfo{}
	}
	doc.Normalize()
	return doc, nil
}
