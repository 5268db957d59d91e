package resume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store 是简历文档的持久化接口。
type Store interface {
	Insert(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]Document, error)
	// Update writes doc only if the stored version still equals expectedVersion.
	Update(ctx context.Context, doc *Document, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

const maxUpdateAttempts = 3

// Service 负责简历的增删改查，并校验所有权。
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewService 构造 Service。
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Create 为 ownerID 新建一份简历，未提供的列表字段默认为空。
func (s *Service) Create(ctx context.Context, ownerID uint, f Fields) (*Document, error) {
	if ownerID == 0 {
		return nil, newValidationError("ownerId", "owner is required")
	}
	if f.LayoutType != nil {
		if err := CheckLayout(*f.LayoutType); err != nil {
			return nil, err
		}
	}

	doc := &Document{}
	f.ApplyTo(doc)
	if doc.PersonalInfo == nil {
		doc.PersonalInfo = &PersonalInfo{}
	}
	doc.Normalize()

	now := s.now()
	doc.ID = s.newID()
	doc.OwnerID = ownerID
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Version = 1

	if err := s.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert resume: %w", err)
	}
	return doc, nil
}

// ListByOwner returns the owner's documents, most recently updated first.
func (s *Service) ListByOwner(ctx context.Context, ownerID uint) ([]Document, error) {
	docs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// GetByID 按 ID 读取文档，不做所有权校验（供内部任务使用）。
func (s *Service) GetByID(ctx context.Context, id string) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetOwned 读取文档并要求 callerID 为所有者。
func (s *Service) GetOwned(ctx context.Context, id string, callerID uint) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != callerID {
		return nil, ErrForbidden
	}
	return doc, nil
}

// Update 以整段替换的方式更新提供的字段。
// 并发写入通过版本号比较交换检测，冲突时重读重放，超过次数返回 ErrConflict。
func (s *Service) Update(ctx context.Context, id string, callerID uint, f Fields) (*Document, error) {
	if f.LayoutType != nil {
		if err := CheckLayout(*f.LayoutType); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := s.GetOwned(ctx, id, callerID)
		if err != nil {
			return nil, err
		}

		expected := doc.Version
		f.ApplyTo(doc)
		if doc.PersonalInfo == nil {
			doc.PersonalInfo = &PersonalInfo{}
		}
		doc.Normalize()
		doc.UpdatedAt = s.now()
		doc.Version = expected + 1

		err = s.store.Update(ctx, doc, expected)
		switch {
		case err == nil:
			return doc, nil
		case errors.Is(err, ErrVersionConflict):
			continue
		default:
			return nil, fmt.Errorf("update resume: %w", err)
		}
	}
	return nil, ErrConflict
}

// Delete 删除文档；非所有者返回 ErrForbidden，不存在返回 ErrNotFound。
func (s *Service) Delete(ctx context.Context, id string, callerID uint) error {
	if _, err := s.GetOwned(ctx, id, callerID); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
