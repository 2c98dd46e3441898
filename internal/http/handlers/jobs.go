package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"uniqbot/internal/domain"
	"uniqbot/pkg/zip"
)

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("http: job status failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	resp := map[string]any{
		"id":         job.ID,
		"status":     string(job.Status),
		"attempts":   job.AttemptCount,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == domain.JobStatusCompleted {
		resp["output_paths"] = job.OutputPaths
	}
	if job.Status == domain.JobStatusFailed {
		resp["error_category"] = string(job.ErrorCategory)
		resp["error_message"] = job.ErrorMessage
	}
	a.json(w, http.StatusOK, resp)
}

// JobDownload streams all artifacts of a completed job as one zip archive.
func (a *App) JobDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("http: job download failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	if job.Status != domain.JobStatusCompleted {
		a.error(w, http.StatusConflict, "not_ready", fmt.Sprintf("job is %s", job.Status))
		return
	}

	assets := make([]zip.Asset, 0, len(job.OutputPaths))
	for _, key := range job.OutputPaths {
		data, err := a.Blobs.Read(r.Context(), key)
		if err != nil {
			a.Logger.Error().Err(err).Str("artifact", key).Msg("http: artifact read failed")
			a.error(w, http.StatusInternalServerError, "internal", "artifact missing")
			return
		}
		assets = append(assets, zip.Asset{Filename: path.Base(key), Data: data})
	}
	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
