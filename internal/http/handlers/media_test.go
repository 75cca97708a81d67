package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/infra"
	"github.com/tenqz/videosos/internal/orchestrator"
	"github.com/tenqz/videosos/internal/providers/fal"
	"github.com/tenqz/videosos/internal/providers/runware"
)

type fakeStore struct {
	records map[string]*domain.MediaRecord
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*domain.MediaRecord)}
}

func (s *fakeStore) Create(_ context.Context, rec *domain.MediaRecord) (*domain.MediaRecord, error) {
	clone := *rec
	s.records[rec.ID] = &clone
	return &clone, nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string) error    { return nil }
func (s *fakeStore) MarkCompleted(_ context.Context, id string, _ json.RawMessage, _ domain.MediaMetadata) error {
	return nil
}
func (s *fakeStore) AttachBlob(_ context.Context, id string, _ *domain.Blob) error      { return nil }
func (s *fakeStore) AttachThumbnail(_ context.Context, id string, _ *domain.Blob) error { return nil }

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.MediaRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) ListByProject(_ context.Context, projectID string) ([]domain.MediaRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.MediaRecord
	for _, rec := range s.records {
		if rec.ProjectID == projectID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeFal struct {
	submitErr error
}

func (f *fakeFal) Submit(_ context.Context, _ string, _ map[string]any) (*fal.QueueSubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &fal.QueueSubmitResult{RequestID: "req-1", Status: "IN_QUEUE"}, nil
}

func (f *fakeFal) UploadBlob(_ context.Context, _ []byte, _ string) (string, error) {
	return "https://storage.example/1", nil
}

func newTestApp(store *fakeStore, falClient *fakeFal) *App {
	orch := orchestrator.New(orchestrator.Options{
		Store: store,
		Fal:   falClient,
		Runware: orchestrator.RunwareSourceFunc(func(context.Context) (orchestrator.RunwareClient, error) {
			return nil, runware.ErrMissingAPIKey
		}),
	})
	logger := infra.Logger(zerolog.Nop())
	return NewApp(orch, store, logger)
}

func newTestRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/projects/{project_id}/jobs", app.SubmitJob)
	r.Get("/v1/projects/{project_id}/media", app.ListProjectMedia)
	r.Get("/v1/media/{id}", app.GetMedia)
	r.Get("/v1/healthz", app.Health)
	return r
}

func TestSubmitJobAccepted(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(newTestApp(store, &fakeFal{}))

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p1/jobs",
		strings.NewReader(`{"endpoint_id":"fal-ai/flux/dev","media_type":"image","input":{"prompt":"a cat"}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	var resp submitJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TaskID == "" || resp.RequestID != "req-1" || resp.Status != "pending" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := store.records[resp.TaskID]; !ok {
		t.Fatal("record not persisted")
	}
}

func TestSubmitJobRejectsUnsupportedMediaType(t *testing.T) {
	router := newTestRouter(newTestApp(newFakeStore(), &fakeFal{}))

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p1/jobs",
		strings.NewReader(`{"endpoint_id":"fal-ai/flux/dev","media_type":"hologram"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitJobRequiresEndpointID(t *testing.T) {
	router := newTestRouter(newTestApp(newFakeStore(), &fakeFal{}))

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p1/jobs",
		strings.NewReader(`{"media_type":"image"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitJobMapsProviderRejection(t *testing.T) {
	router := newTestRouter(newTestApp(newFakeStore(), &fakeFal{
		submitErr: &fal.APIError{Status: 422, Message: "bad prompt"},
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/p1/jobs",
		strings.NewReader(`{"endpoint_id":"fal-ai/flux/dev","media_type":"image"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "submission_failed" {
		t.Fatalf("error slug = %q", resp["error"])
	}
}

func TestGetMediaNotFound(t *testing.T) {
	router := newTestRouter(newTestApp(newFakeStore(), &fakeFal{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/media/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetMediaEncodesBlob(t *testing.T) {
	store := newFakeStore()
	store.records["m1"] = &domain.MediaRecord{
		ID:        "m1",
		ProjectID: "p1",
		CreatedAt: time.UnixMilli(1700000000000),
		MediaType: domain.MediaTypeImage,
		Kind:      domain.MediaKindGenerated,
		Provider:  domain.ProviderRunware,
		Status:    domain.MediaStatusCompleted,
		Blob:      &domain.Blob{Data: []byte("hi"), ContentType: "image/png"},
	}
	router := newTestRouter(newTestApp(store, &fakeFal{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/media/m1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp mediaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CreatedAt != 1700000000000 {
		t.Fatalf("created_at = %d", resp.CreatedAt)
	}
	if resp.Blob == nil || resp.Blob.Data != "aGk=" || resp.Blob.ContentType != "image/png" {
		t.Fatalf("blob = %+v", resp.Blob)
	}
}

func TestListProjectMedia(t *testing.T) {
	store := newFakeStore()
	store.records["m1"] = &domain.MediaRecord{ID: "m1", ProjectID: "p1", MediaType: domain.MediaTypeImage, Status: domain.MediaStatusPending}
	store.records["m2"] = &domain.MediaRecord{ID: "m2", ProjectID: "p2", MediaType: domain.MediaTypeImage, Status: domain.MediaStatusPending}
	router := newTestRouter(newTestApp(store, &fakeFal{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/p1/media", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Items []mediaResponse `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "m1" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newTestApp(newFakeStore(), &fakeFal{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
