package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeBuilder/internal/ai"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/github"
	"resumeBuilder/internal/jobs"
	"resumeBuilder/internal/render"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
	"resumeBuilder/internal/upstream"
)

type stubTokens map[string]uint

func (s stubTokens) ValidateAccessToken(token string) (*auth.TokenClaims, error) {
	id, ok := s[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.TokenClaims{UserID: id, TokenType: auth.TokenTypeAccess}, nil
}

type renderCall struct {
	doc    *resume.Document
	layout resume.LayoutType
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls []renderCall
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, doc *resume.Document, lt resume.LayoutType) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, renderCall{doc: doc, layout: lt})
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 " + string(lt)), nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeObjects struct {
	deletedPrefixes []string
}

func (o *fakeObjects) DeletePrefix(_ context.Context, prefix string) error {
	o.deletedPrefixes = append(o.deletedPrefixes, prefix)
	return nil
}

func (o *fakeObjects) GeneratePresignedURL(_ context.Context, key string, _ time.Duration, filename string) (string, error) {
	return "https://minio.example/" + key + "?filename=" + filename, nil
}

type fakeEnhancer struct {
	err error
}

func (f fakeEnhancer) Enhance(_ context.Context, username, linkedIn string) (*github.Enhancement, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &github.Enhancement{
		Data:         github.Profile{PersonalInfo: resume.PersonalInfo{FullName: username}},
		LinkedInNote: "No LinkedIn URL provided.",
	}, nil
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	exports  *database.ExportStore
	renderer *fakeRenderer
	queue    *fakeQueue
	objects  *fakeObjects
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:api_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T, enhancer profileEnhancer) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		db:       newTestDB(t),
		renderer: &fakeRenderer{},
		queue:    &fakeQueue{},
		objects:  &fakeObjects{},
	}
	env.exports = database.NewExportStore(env.db)
	svc := resume.NewService(database.NewResumeStore(env.db))

	if enhancer == nil {
		enhancer = fakeEnhancer{}
	}

	env.router = gin.New()
	RegisterRoutes(env.router, Handlers{
		Resumes:  NewResumeHandler(svc, env.objects, env.exports, nil),
		PDF:      NewPDFHandler(svc, env.renderer, nil),
		Exports:  NewExportHandler(svc, env.exports, env.queue, env.objects, 3, nil),
		Insights: NewInsightsHandler(svc, ai.NewAnalyzer(nil, nil), jobs.NewRecommender(nil, jobs.Options{}), enhancer, nil),
	}, stubTokens{"alice": 7, "bob": 8})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func (e *testEnv) createResume(t *testing.T, token, body string) resume.Document {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/resumes", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[resume.Document](t, rec)
}

const janeResume = `{
	"personalInfo": {"fullName": "Jane Doe", "email": "jane@example.com"},
	"summary": "Backend engineer",
	"experience": [{"company": "Acme", "position": "Engineer", "technologies": "Go, Postgres"}],
	"skills": {"technical": ["Go", "Postgres"]},
	"layoutType": "classic"
}`

func TestResumeCRUDFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	created := env.createResume(t, "alice", janeResume)
	if created.ID == "" || created.OwnerID != 7 || created.LayoutType != resume.LayoutClassic {
		t.Fatalf("unexpected created document: %+v", created)
	}
	if got := []string(created.Experience[0].Technologies); len(got) != 2 || got[1] != "Postgres" {
		t.Fatalf("technologies should be split: %v", got)
	}
	if created.Education == nil || created.Projects == nil || created.Certifications == nil {
		t.Fatalf("lists should default to empty: %+v", created)
	}

	rec := env.do(t, http.MethodGet, "/resumes/7", "alice", nil)
	if rec.Code != http.StatusOK || len(decode[[]resume.Document](t, rec)) != 1 {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/resumes/8", "alice", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("listing another owner: expected 403, got %d", rec.Code)
	}

	single := "/resumes/single/" + created.ID
	if rec := env.do(t, http.MethodGet, single, "alice", nil); rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, single, "bob", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("get as non-owner: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/resumes/"+created.ID, "alice", `{"summary":"Staff engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[resume.Document](t, rec)
	if updated.Summary != "Staff engineer" || updated.PersonalInfo.FullName != "Jane Doe" {
		t.Fatalf("update should only replace summary: %+v", updated)
	}

	if rec := env.do(t, http.MethodPut, "/resumes/"+created.ID, "bob", `{"summary":"x"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("update as non-owner: expected 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/resumes/"+created.ID, "bob", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("delete as non-owner: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/resumes/"+created.ID, "alice", nil)
	if rec.Code != http.StatusOK || decode[map[string]string](t, rec)["message"] != "Resume deleted successfully" {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if len(env.objects.deletedPrefixes) != 1 || env.objects.deletedPrefixes[0] != "exports/7/"+created.ID+"/" {
		t.Fatalf("export objects should be cleaned: %v", env.objects.deletedPrefixes)
	}
	if rec := env.do(t, http.MethodGet, single, "alice", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/resumes/"+created.ID, "alice", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestResumeValidationErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/resumes", "alice", `{"experience":"not a list"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[struct {
		Message string              `json:"message"`
		Errors  []resume.FieldError `json:"errors"`
	}](t, rec)
	if len(body.Errors) == 0 || body.Errors[0].Field != "experience" {
		t.Fatalf("expected field-level error for experience: %+v", body)
	}

	if rec := env.do(t, http.MethodPost, "/resumes", "alice", `{"layoutType":"bogus"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown layout: expected 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/resumes", "", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}
}

func TestGeneratePDF(t *testing.T) {
	env := newTestEnv(t, nil)
	saved := env.createResume(t, "alice", janeResume)

	rec := env.do(t, http.MethodPost, "/resumes/generate-pdf", "alice", `{}`)
	if rec.Code != http.StatusBadRequest || decode[map[string]string](t, rec)["message"] != "Resume data or ID is required" {
		t.Fatalf("missing input: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/resumes/generate-pdf", "alice", map[string]any{
		"resumeData": map[string]any{"personalInfo": map[string]string{"fullName": "Inline"}},
		"layoutType": "minimal",
	})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("inline render: %d %s", rec.Code, rec.Body.String())
	}
	if name := attachmentName(t, rec); name != "resume-minimal.pdf" {
		t.Fatalf("filename = %q", name)
	}

	rec = env.do(t, http.MethodPost, "/resumes/generate-pdf", "alice", map[string]any{
		"resumeId":   saved.ID,
		"resumeData": map[string]any{"personalInfo": map[string]string{"fullName": "Ignored"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("render by id: %d %s", rec.Code, rec.Body.String())
	}
	last := env.renderer.calls[len(env.renderer.calls)-1]
	if last.doc.ID != saved.ID || last.layout != resume.LayoutModern {
		t.Fatalf("resumeId should win and missing layoutType should render modern: id=%q layout=%q", last.doc.ID, last.layout)
	}
	if name := attachmentName(t, rec); name != "resume-modern.pdf" {
		t.Fatalf("filename = %q", name)
	}

	rec = env.do(t, http.MethodPost, "/resumes/generate-pdf", "alice", map[string]any{
		"resumeId":   saved.ID,
		"layoutType": "creative",
	})
	last = env.renderer.calls[len(env.renderer.calls)-1]
	if rec.Code != http.StatusOK || last.layout != resume.LayoutCreative {
		t.Fatalf("explicit layoutType: %d layout=%q", rec.Code, last.layout)
	}

	if rec := env.do(t, http.MethodPost, "/resumes/generate-pdf", "bob", map[string]string{"resumeId": saved.ID}); rec.Code != http.StatusForbidden {
		t.Fatalf("render as non-owner: expected 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/resumes/generate-pdf", "alice", map[string]string{"resumeId": "missing"}); rec.Code != http.StatusNotFound {
		t.Fatalf("render missing: expected 404, got %d", rec.Code)
	}

	env.renderer.err = &render.Error{Op: "print", Err: errors.New("browser crashed")}
	rec = env.do(t, http.MethodPost, "/resumes/generate-pdf", "alice", map[string]string{"resumeId": saved.ID})
	if rec.Code != http.StatusInternalServerError || decode[map[string]string](t, rec)["message"] != "Failed to generate PDF" {
		t.Fatalf("render failure: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "browser crashed") {
		t.Fatal("internal error detail leaked to caller")
	}
}

func TestDownloadPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	saved := env.createResume(t, "alice", janeResume)

	rec := env.do(t, http.MethodGet, "/pdf/download/"+saved.ID, "alice", nil)
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("download: %d", rec.Code)
	}
	if name := attachmentName(t, rec); name != "Jane Doe_Resume.pdf" {
		t.Fatalf("filename = %q", name)
	}
	if rec := env.do(t, http.MethodGet, "/pdf/download/"+saved.ID, "bob", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("download as non-owner: expected 403, got %d", rec.Code)
	}

	anon := env.createResume(t, "alice", `{"personalInfo":{"fullName":"  "}}`)
	rec = env.do(t, http.MethodGet, "/pdf/download/"+anon.ID, "alice", nil)
	if name := attachmentName(t, rec); name != "Resume_Resume.pdf" {
		t.Fatalf("fallback filename = %q", name)
	}
}

func TestDownloadFilenameSanitized(t *testing.T) {
	doc := &resume.Document{PersonalInfo: &resume.PersonalInfo{FullName: "Evil\"\r\nName/.."}}
	if got := DownloadFilename(doc); got != "EvilName.._Resume.pdf" {
		t.Fatalf("got %q", got)
	}
}

func TestExportLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	saved := env.createResume(t, "alice", janeResume)

	rec := env.do(t, http.MethodPost, "/exports", "alice", map[string]string{"resumeId": saved.ID, "layoutType": "creative"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create export: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]string](t, rec)
	exportID := created["exportId"]
	if exportID == "" || created["taskId"] != "task-1" || created["status"] != database.ExportPending {
		t.Fatalf("unexpected response: %v", created)
	}

	if len(env.queue.tasks) != 1 || env.queue.tasks[0].Type() != tasks.TypeExportPDF {
		t.Fatalf("expected one export task, got %d", len(env.queue.tasks))
	}
	payload, err := tasks.ParseExportPDFPayload(env.queue.tasks[0])
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.ExportID != exportID || payload.OwnerID != 7 || payload.LayoutType != "creative" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	rec = env.do(t, http.MethodGet, "/exports/"+exportID, "alice", nil)
	if rec.Code != http.StatusOK || decode[exportResponse](t, rec).DownloadURL != "" {
		t.Fatalf("pending export should have no link: %s", rec.Body.String())
	}

	if err := env.exports.MarkCompleted(context.Background(), exportID, "exports/7/x.pdf"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	rec = env.do(t, http.MethodGet, "/exports/"+exportID, "alice", nil)
	got := decode[exportResponse](t, rec)
	if got.Status != database.ExportCompleted || !strings.HasPrefix(got.DownloadURL, "https://minio.example/exports/7/x.pdf") {
		t.Fatalf("completed export: %+v", got)
	}

	if rec := env.do(t, http.MethodGet, "/exports/"+exportID, "bob", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("export as non-owner: expected 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/exports/nope", "alice", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing export: expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/exports", "bob", map[string]string{"resumeId": saved.ID}); rec.Code != http.StatusForbidden {
		t.Fatalf("export someone else's resume: expected 403, got %d", rec.Code)
	}
}

func TestExportEnqueueFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t, nil)
	saved := env.createResume(t, "alice", janeResume)
	env.queue.err = errors.New("redis down")

	rec := env.do(t, http.MethodPost, "/exports", "alice", map[string]string{"resumeId": saved.ID})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var exp database.Export
	if err := env.db.Where("resume_id = ?", saved.ID).First(&exp).Error; err != nil {
		t.Fatalf("load export: %v", err)
	}
	if exp.Status != database.ExportFailed {
		t.Fatalf("expected failed export, got %q", exp.Status)
	}
}

func TestInsightsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/ai/analyze-resume", "alice", `{}`)
	if rec.Code != http.StatusBadRequest || decode[map[string]any](t, rec)["message"] != "Resume content is required" {
		t.Fatalf("analyze without content: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/ai/analyze-resume", "alice", `{"resumeContent":{"summary":"Go"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: %d %s", rec.Code, rec.Body.String())
	}
	analysis := decode[struct {
		Analysis ai.Analysis `json:"analysis"`
	}](t, rec).Analysis
	if analysis.Score != 75 {
		t.Fatalf("expected sample analysis, got %+v", analysis)
	}

	saved := env.createResume(t, "alice", janeResume)
	if rec := env.do(t, http.MethodPost, "/ai/analyze-resume", "bob", map[string]string{"resumeId": saved.ID}); rec.Code != http.StatusForbidden {
		t.Fatalf("analyze someone else's resume: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/jobs/recommendations", "alice", `{"resumeData":{"skills":{"technical":["Go"]}}}`)
	if rec.Code != http.StatusOK || len(decode[struct {
		Jobs []jobs.Job `json:"jobs"`
	}](t, rec).Jobs) != 3 {
		t.Fatalf("jobs: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/profiles/enhance", "alice", `{"githubUsername":"octo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("enhance: %d %s", rec.Code, rec.Body.String())
	}
	if body := decode[map[string]any](t, rec); body["linkedinUrl"] != nil {
		t.Fatalf("linkedinUrl should be null without input: %v", body)
	}
}

func TestEnhanceProfileUpstreamErrors(t *testing.T) {
	env := newTestEnv(t, fakeEnhancer{err: upstream.Classify("github", http.StatusNotFound, upstream.Messages{NotFound: "GitHub user not found"}, nil)})

	rec := env.do(t, http.MethodPost, "/profiles/enhance", "alice", `{"githubUsername":"ghost"}`)
	if rec.Code != http.StatusNotFound || decode[map[string]string](t, rec)["message"] != "GitHub user not found" {
		t.Fatalf("expected 404 passthrough, got %d %s", rec.Code, rec.Body.String())
	}

	env = newTestEnv(t, github.NewClient("http://127.0.0.1:0", "", nil, nil))
	rec = env.do(t, http.MethodPost, "/profiles/enhance", "alice", `{}`)
	if rec.Code != http.StatusBadRequest || decode[map[string]any](t, rec)["message"] != "GitHub username is required" {
		t.Fatalf("missing username: %d %s", rec.Code, rec.Body.String())
	}
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse content-disposition %q: %v", rec.Header().Get("Content-Disposition"), err)
	}
	return params["filename"]
}
