package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// HTTPTransport speaks the generation backend's HTTP and WebSocket API.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport for the backend at baseURL
// (for example "http://localhost:8080").
func NewHTTPTransport(baseURL string, logger *zap.Logger) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		dialer:  websocket.DefaultDialer,
		logger:  logger.Named("transport"),
	}
}

// Submit implements Transport.
func (t *HTTPTransport) Submit(ctx context.Context, req *models.GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	return accepted.JobID, nil
}

// OpenStatusChannel implements Transport over a WebSocket connection.
func (t *HTTPTransport) OpenStatusChannel(ctx context.Context, jobID string) (<-chan models.StatusUpdate, func(), error) {
	wsURL, err := t.websocketURL("/ws/jobs/" + url.PathEscape(jobID))
	if err != nil {
		return nil, nil, err
	}

	conn, resp, err := t.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, nil, fmt.Errorf("dial status channel: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	updates := make(chan models.StatusUpdate, 16)
	go func() {
		defer close(updates)
		for {
			var update models.StatusUpdate
			if err := conn.ReadJSON(&update); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.logger.Debug("status channel closed",
						zap.String("job_id", jobID),
						zap.Error(err))
				}
				return
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, func() { _ = conn.Close() }, nil
}

// Cancel implements Transport.
func (t *HTTPTransport) Cancel(ctx context.Context, jobID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		t.baseURL+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return fmt.Errorf("build cancel request: %w", err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// FetchResult implements Transport. JSON responses decode into a structured
// result; anything else is delivered as an opaque file payload.
func (t *HTTPTransport) FetchResult(ctx context.Context, jobID string) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.baseURL+"/api/jobs/"+url.PathEscape(jobID)+"/result", nil)
	if err != nil {
		return nil, fmt.Errorf("build result request: %w", err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("result request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var jsonResult models.JSONResult
		if err := json.NewDecoder(resp.Body).Decode(&jsonResult); err != nil {
			return nil, fmt.Errorf("decode json result: %w", err)
		}
		return &Result{JSON: &jsonResult, Format: models.FormatJSON}, nil
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result payload: %w", err)
	}
	result := &Result{Blob: blob}
	switch mediaType {
	case "text/csv":
		result.Format = models.FormatCSV
	default:
		result.Format = models.FormatSQL
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		result.Filename = params["filename"]
	}
	return result, nil
}

func (t *HTTPTransport) websocketURL(path string) (string, error) {
	u, err := url.Parse(t.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("parse websocket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

// apiError turns a non-success response into an error carrying the backend's
// message when it sent one.
func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("backend returned %d", resp.StatusCode)
}
