package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

const wsWriteTimeout = 10 * time.Second

// StatusSource is the job state the status channel reads from.
type StatusSource interface {
	Get(ctx context.Context, jobID string) (*models.Job, error)
	Subscribe(ctx context.Context, jobID string) (<-chan models.StatusUpdate, func(), error)
}

// WSHandler streams job status updates over WebSocket connections.
type WSHandler struct {
	source   StatusSource
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(source StatusSource, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the websocket handler's routes on the given mux.
func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/jobs/{id}", h.StreamStatus)
}

// StreamStatus handles GET /ws/jobs/{id} requests.
// The connection starts with a snapshot of the job's current state, then
// relays live updates until the job settles or the client goes away.
func (h *WSHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.source.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "job_not_found", "no job with id "+jobID)
			return
		}
		h.logger.Error("job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "job lookup failed")
		return
	}

	// Subscribe before sending the snapshot so no update can fall between
	// the two.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsubscribe, err := h.source.Subscribe(ctx, jobID)
	if err != nil {
		h.logger.Error("subscribe failed", zap.String("job_id", jobID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "status channel unavailable")
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so closes are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	snapshot := models.StatusUpdate{
		Status:   &job.Status,
		Progress: &job.Progress,
		Error:    job.Error,
	}
	if err := h.send(conn, snapshot); err != nil {
		return
	}
	if job.Status.Terminal() {
		h.closeNormally(conn)
		return
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := h.send(conn, update); err != nil {
				return
			}
			if update.Status != nil && update.Status.Terminal() {
				h.closeNormally(conn)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) send(conn *websocket.Conn, update models.StatusUpdate) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(update); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}

func (h *WSHandler) closeNormally(conn *websocket.Conn) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}
