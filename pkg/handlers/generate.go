package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
	"github.com/datasynth-ai/datasynth-engine/pkg/schema"
)

// GenerationService is the slice of the generation service the HTTP layer
// needs.
type GenerationService interface {
	StartJob(ctx context.Context, req *models.GenerateRequest) (string, error)
	GenerateSync(ctx context.Context, req *models.GenerateRequest, maxRows int) ([]byte, models.OutputFormat, string, error)
	Job(ctx context.Context, jobID string) (*models.Job, error)
	Cancel(ctx context.Context, jobID string) error
	Result(ctx context.Context, jobID string) ([]byte, models.OutputFormat, string, error)
}

// GenerateHandler accepts generation requests.
type GenerateHandler struct {
	svc          GenerationService
	syncRowLimit int
	logger       *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler.
func NewGenerateHandler(svc GenerationService, syncRowLimit int, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{svc: svc, syncRowLimit: syncRowLimit, logger: logger}
}

// RegisterRoutes registers the generate handler's routes on the given mux.
func (h *GenerateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/generate", h.Generate)
	mux.HandleFunc("POST /api/generate/sync", h.GenerateSync)
}

// Generate handles POST /api/generate requests.
// Accepts a schema, starts a background job, and returns 202 with the job ID.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	jobID, err := h.svc.StartJob(r.Context(), req)
	if err != nil {
		h.writeStartError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID}); err != nil {
		h.logger.Error("Failed to encode generate response", zap.Error(err))
	}
}

// GenerateSync handles POST /api/generate/sync requests.
// Runs a small request inline and returns the rendered result directly.
func (h *GenerateHandler) GenerateSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	payload, format, filename, err := h.svc.GenerateSync(r.Context(), req, h.syncRowLimit)
	if err != nil {
		h.writeStartError(w, err)
		return
	}

	writeResult(w, payload, format, filename)
}

func (h *GenerateHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*models.GenerateRequest, bool) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body is not a valid schema document: "+err.Error())
		return nil, false
	}
	return &req, true
}

// writeStartError maps submission failures to responses: validation problems
// carry the full error list, everything else is a 400 with the message.
func (h *GenerateHandler) writeStartError(w http.ResponseWriter, err error) {
	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, len(verrs))
		for i, v := range verrs {
			details[i] = v.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		if encErr := json.NewEncoder(w).Encode(map[string]any{
			"error":   "validation_failed",
			"message": verrs.Error(),
			"details": details,
		}); encErr != nil {
			h.logger.Error("Failed to encode validation response", zap.Error(encErr))
		}
		return
	}

	h.logger.Warn("generation request rejected", zap.Error(err))
	_ = ErrorResponse(w, http.StatusBadRequest, "generation_rejected", err.Error())
}

// writeResult delivers a rendered result in its format's content type, with
// a download filename for file formats.
func writeResult(w http.ResponseWriter, payload []byte, format models.OutputFormat, filename string) {
	switch format {
	case models.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case models.FormatSQL:
		w.Header().Set("Content-Type", "application/sql")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	if format.Binary() {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
