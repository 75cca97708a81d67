package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/orchestrator"
)

type submitJobRequest struct {
	EndpointID string         `json:"endpoint_id"`
	MediaType  string         `json:"media_type"`
	Input      map[string]any `json:"input"`
}

type submitJobResponse struct {
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"`
	Immediate bool   `json:"immediate"`
}

// SubmitJob accepts a generation job for a project. The 202 acknowledgment
// means "accepted for processing": reconciliation continues detached and is
// observed through the media record's status.
func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.EndpointID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "endpoint_id required")
		return
	}

	result, err := a.Orchestrator.Submit(r.Context(), orchestrator.JobRequest{
		ProjectID:  projectID,
		EndpointID: req.EndpointID,
		MediaType:  domain.MediaType(req.MediaType),
		Input:      req.Input,
	})
	if err != nil {
		var uploadErr *orchestrator.UploadError
		switch {
		case errors.Is(err, domain.ErrUnsupportedMediaType):
			a.error(w, http.StatusBadRequest, "bad_request", "unsupported media type")
		case errors.As(err, &uploadErr):
			a.error(w, http.StatusBadGateway, "upload_failed", uploadErr.Error())
		default:
			a.Logger.Error().Err(err).Str("endpoint_id", req.EndpointID).Msg("job submission failed")
			a.error(w, http.StatusBadGateway, "submission_failed", "provider rejected the job")
		}
		return
	}
	a.json(w, http.StatusAccepted, submitJobResponse{
		TaskID:    result.TaskID,
		RequestID: result.RequestID,
		Status:    string(domain.MediaStatusPending),
		Immediate: result.Immediate,
	})
}

type mediaResponse struct {
	ID            string               `json:"id"`
	ProjectID     string               `json:"project_id"`
	CreatedAt     int64                `json:"created_at"`
	MediaType     domain.MediaType     `json:"media_type"`
	Kind          string               `json:"kind"`
	Provider      domain.Provider      `json:"provider"`
	EndpointID    string               `json:"endpoint_id"`
	RequestID     string               `json:"request_id,omitempty"`
	TaskUUID      string               `json:"task_uuid,omitempty"`
	Status        domain.MediaStatus   `json:"status"`
	Input         map[string]any       `json:"input,omitempty"`
	Output        json.RawMessage      `json:"output,omitempty"`
	Metadata      *domain.MediaMetadata `json:"metadata,omitempty"`
	Blob          *blobResponse        `json:"blob,omitempty"`
	ThumbnailBlob *blobResponse        `json:"thumbnail_blob,omitempty"`
}

type blobResponse struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// GetMedia returns one media record by id.
func (a *App) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	rec, err := a.Store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "media not found")
			return
		}
		a.Logger.Error().Err(err).Str("media_id", id).Msg("failed to load media")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load media")
		return
	}
	a.json(w, http.StatusOK, toMediaResponse(rec))
}

// ListProjectMedia returns a project's media records, newest first.
func (a *App) ListProjectMedia(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}
	records, err := a.Store.ListByProject(r.Context(), projectID)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", projectID).Msg("failed to list media")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list media")
		return
	}
	items := make([]mediaResponse, 0, len(records))
	for i := range records {
		items = append(items, *toMediaResponse(&records[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func toMediaResponse(rec *domain.MediaRecord) *mediaResponse {
	resp := &mediaResponse{
		ID:         rec.ID,
		ProjectID:  rec.ProjectID,
		CreatedAt:  rec.CreatedAt.UnixMilli(),
		MediaType:  rec.MediaType,
		Kind:       rec.Kind,
		Provider:   rec.Provider,
		EndpointID: rec.EndpointID,
		RequestID:  rec.RequestID,
		TaskUUID:   rec.TaskUUID,
		Status:     rec.Status,
		Input:      rec.Input,
		Output:     rec.Output,
		Metadata:   rec.Metadata,
	}
	if rec.Blob != nil {
		resp.Blob = &blobResponse{
			ContentType: rec.Blob.ContentType,
			Data:        base64.StdEncoding.EncodeToString(rec.Blob.Data),
		}
	}
	if rec.ThumbnailBlob != nil {
		resp.ThumbnailBlob = &blobResponse{
			ContentType: rec.ThumbnailBlob.ContentType,
			Data:        base64.StdEncoding.EncodeToString(rec.ThumbnailBlob.Data),
		}
	}
	return resp
}
