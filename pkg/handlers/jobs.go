package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
)

// JobsHandler serves job state, cancellation, and results.
type JobsHandler struct {
	svc    GenerationService
	logger *zap.Logger
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(svc GenerationService, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the jobs handler's routes on the given mux.
func (h *JobsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.CancelJob)
	mux.HandleFunc("GET /api/jobs/{id}/result", h.GetResult)
}

// GetJob handles GET /api/jobs/{id} requests.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.svc.Job(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, job); err != nil {
		h.logger.Error("Failed to encode job response", zap.Error(err))
	}
}

// CancelJob handles DELETE /api/jobs/{id} requests.
// Cancelling a job that already settled succeeds without changing it.
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	if err := h.svc.Cancel(r.Context(), jobID); err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "cancelled"}); err != nil {
		h.logger.Error("Failed to encode cancel response", zap.Error(err))
	}
}

// GetResult handles GET /api/jobs/{id}/result requests.
// Results for csv and sql formats are delivered as file downloads.
func (h *JobsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	payload, format, filename, err := h.svc.Result(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	writeResult(w, payload, format, filename)
}

func (h *JobsHandler) writeJobError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "job_not_found", "no job with id "+jobID)
	case errors.Is(err, apperrors.ErrResultRetrieval):
		_ = ErrorResponse(w, http.StatusConflict, "result_unavailable", err.Error())
	default:
		h.logger.Error("job request failed", zap.String("job_id", jobID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "job request failed")
	}
}
