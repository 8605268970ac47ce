// Package jobclient drives a generation job from the consumer's side: submit
// a schema, follow the status stream, cancel, and collect the result. The
// Controller owns the client-side state machine; a Transport carries the
// protocol.
package jobclient

import (
	"context"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// Result is a fetched job result. Exactly one of JSON or Blob is set: JSON
// for structured results, Blob for rendered csv/sql payloads.
type Result struct {
	JSON     *models.JSONResult
	Blob     []byte
	Format   models.OutputFormat
	Filename string
}

// Transport carries the job protocol to a generation backend.
type Transport interface {
	// Submit sends a generation request and returns the backend's job ID.
	Submit(ctx context.Context, req *models.GenerateRequest) (string, error)

	// OpenStatusChannel opens the live status stream for a job. The channel
	// closes when the stream ends; the returned func tears the stream down.
	OpenStatusChannel(ctx context.Context, jobID string) (<-chan models.StatusUpdate, func(), error)

	// Cancel asks the backend to stop a job.
	Cancel(ctx context.Context, jobID string) error

	// FetchResult retrieves the finished result of a completed job.
	FetchResult(ctx context.Context, jobID string) (*Result, error)
}
