package resume

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu        sync.Mutex
	docs      map[string]Document
	conflicts int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]Document{}}
}

func (m *memoryStore) Insert(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (m *memoryStore) ListByOwner(_ context.Context, ownerID uint) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, doc *Document, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return ErrVersionConflict
	}
	current, ok := m.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func newTestService(store Store) *Service {
	svc := NewService(store)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	var seq int
	svc.newID = func() string {
		seq++
		return "resume-" + strconv.Itoa(seq)
	}
	return svc
}

func strPtr(s string) *string { return &s }

func sampleFields() Fields {
	layout := LayoutClassic
	return Fields{
		PersonalInfo: &PersonalInfo{FullName: "Jane Doe", Email: "jane@example.com"},
		Summary:      strPtr("Backend engineer"),
		Experience: []Experience{
			{Company: "Acme", Position: "Engineer", Duration: "2020-2023", Technologies: Technologies{"Go", "Postgres"}},
		},
		Education:      []Education{{Institution: "MIT", Degree: "BSc", Field: "CS", GraduationYear: "2019"}},
		Skills:         &Skills{Technical: []string{"Go"}, Soft: []string{"Mentoring"}},
		Projects:       []Project{{Name: "resumectl", Technologies: Technologies{"Go"}}},
		Certifications: []Certification{{Name: "CKA", Issuer: "CNCF", Date: "2022"}},
		LayoutType:     &layout,
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	created, err := svc.Create(ctx, 7, sampleFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected server-assigned id and timestamps, got %+v", created)
	}

	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	want := &Document{OwnerID: 7}
	sampleFields().ApplyTo(want)
	want.Normalize()
	want.ID, want.CreatedAt, want.UpdatedAt, want.Version = got.ID, got.CreatedAt, got.UpdatedAt, got.Version

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch\n got=%+v\nwant=%+v", got, want)
	}
}

func TestCreateDefaultsEmptyLists(t *testing.T) {
	svc := newTestService(newMemoryStore())

	doc, err := svc.Create(context.Background(), 1, Fields{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.PersonalInfo == nil {
		t.Fatal("personalInfo should default to an empty object")
	}
	if doc.Experience == nil || doc.Education == nil || doc.Projects == nil || doc.Certifications == nil {
		t.Fatalf("list fields must default to empty, got %+v", doc)
	}
	if doc.Skills.Technical == nil || doc.Skills.Soft == nil {
		t.Fatalf("skills must default to empty lists, got %+v", doc.Skills)
	}
	if doc.LayoutType != LayoutModern {
		t.Fatalf("expected modern layout, got %q", doc.LayoutType)
	}
}

func TestCreateRejectsUnknownLayoutAndMissingOwner(t *testing.T) {
	svc := newTestService(newMemoryStore())
	bogus := LayoutType("bogus")

	var verr *ValidationError
	if _, err := svc.Create(context.Background(), 1, Fields{LayoutType: &bogus}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for layout, got %v", err)
	}
	if _, err := svc.Create(context.Background(), 0, Fields{}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for owner, got %v", err)
	}
}

func TestUpdateReplacesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	created, err := svc.Create(ctx, 7, sampleFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, 7, Fields{Summary: strPtr("Staff engineer")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Summary != "Staff engineer" {
		t.Fatalf("summary not replaced: %q", updated.Summary)
	}
	if !reflect.DeepEqual(updated.Experience, created.Experience) {
		t.Fatalf("experience should be untouched: %+v", updated.Experience)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed: %v <= %v", updated.UpdatedAt, created.UpdatedAt)
	}

	replaced, err := svc.Update(ctx, created.ID, 7, Fields{Skills: &Skills{Soft: []string{"Writing"}}})
	if err != nil {
		t.Fatalf("update skills: %v", err)
	}
	if len(replaced.Skills.Technical) != 0 || !reflect.DeepEqual(replaced.Skills.Soft, []string{"Writing"}) {
		t.Fatalf("skills must be replaced wholesale, got %+v", replaced.Skills)
	}
}

func TestNonOwnerIsForbidden(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	created, err := svc.Create(ctx, 7, sampleFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetOwned(ctx, created.ID, 8); !errors.Is(err, ErrForbidden) {
		t.Fatalf("get: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, created.ID, 8, Fields{Summary: strPtr("x")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("update: expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID, 8); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete: expected ErrForbidden, got %v", err)
	}

	still, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("document should survive forbidden calls: %v", err)
	}
	if still.Summary != "Backend engineer" {
		t.Fatalf("forbidden update leaked through: %q", still.Summary)
	}
}

func TestDeleteTwiceReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	created, err := svc.Create(ctx, 7, Fields{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, 7); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestListByOwnerOrdersByUpdatedAtDesc(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	first, _ := svc.Create(ctx, 7, Fields{Summary: strPtr("first")})
	second, _ := svc.Create(ctx, 7, Fields{Summary: strPtr("second")})
	if _, err := svc.Create(ctx, 9, Fields{}); err != nil {
		t.Fatalf("create other owner: %v", err)
	}
	if _, err := svc.Update(ctx, first.ID, 7, Fields{Summary: strPtr("first, edited")}); err != nil {
		t.Fatalf("update: %v", err)
	}

	docs, err := svc.ListByOwner(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != first.ID || docs[1].ID != second.ID {
		t.Fatalf("unexpected order: %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestUpdateRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store)

	created, _ := svc.Create(ctx, 7, Fields{})

	store.conflicts = maxUpdateAttempts - 1
	if _, err := svc.Update(ctx, created.ID, 7, Fields{Summary: strPtr("eventually")}); err != nil {
		t.Fatalf("update should succeed after retries: %v", err)
	}

	store.conflicts = maxUpdateAttempts
	if _, err := svc.Update(ctx, created.ID, 7, Fields{Summary: strPtr("never")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
