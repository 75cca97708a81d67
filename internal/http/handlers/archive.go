package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tenqz/videosos/pkg/zip"
)

var extensionByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
}

// ArchiveProjectMedia streams a zip of every downloaded blob in the project.
// Records without a stored blob (pending, failed, or not yet fetched) are
// skipped.
func (a *App) ArchiveProjectMedia(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "project_id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project_id required")
		return
	}
	records, err := a.Store.ListByProject(r.Context(), projectID)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", projectID).Msg("failed to list media for archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list media")
		return
	}

	var assets []zip.Asset
	for i := range records {
		rec := &records[i]
		if rec.Blob == nil {
			continue
		}
		ext := extensionByContentType[rec.Blob.ContentType]
		if ext == "" {
			ext = ".bin"
		}
		assets = append(assets, zip.Asset{
			Filename: rec.ID + ext,
			MIME:     rec.Blob.ContentType,
			Data:     rec.Blob.Data,
		})
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no downloadable media in project")
		return
	}

	data := zip.ArchiveAssets(assets)
	if data == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "project-"+projectID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
