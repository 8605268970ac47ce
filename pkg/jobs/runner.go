package jobs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
)

// JobFunc is the body of a job. The context is cancelled when the job is
// cancelled or the runner shuts down; the function is responsible for
// recording its own terminal state in the store.
type JobFunc func(ctx context.Context)

// Runner executes jobs on goroutines, one per job, each with its own
// cancellation handle. A semaphore caps how many generate concurrently so a
// burst of submissions does not stampede the LLM providers.
type Runner struct {
	mu      sync.Mutex
	running map[string]context.CancelFunc

	sem    chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner creates a runner that executes at most maxConcurrent jobs at
// once. Zero or negative means unlimited.
func NewRunner(maxConcurrent int, logger *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		running: make(map[string]context.CancelFunc),
		logger:  logger.Named("runner"),
		ctx:     ctx,
		cancel:  cancel,
	}
	if maxConcurrent > 0 {
		r.sem = make(chan struct{}, maxConcurrent)
	}
	return r
}

// Start launches a job. It returns ErrJobInFlight if a job with the same ID
// is already running.
func (r *Runner) Start(jobID string, fn JobFunc) error {
	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return fmt.Errorf("runner is shut down: %w", context.Canceled)
	}
	if _, ok := r.running[jobID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("job %s: %w", jobID, apperrors.ErrJobInFlight)
	}
	jobCtx, cancel := context.WithCancel(r.ctx)
	r.running[jobID] = cancel
	r.mu.Unlock()

	r.logger.Info("job started", zap.String("job_id", jobID))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.running, jobID)
			r.mu.Unlock()
			r.logger.Info("job finished", zap.String("job_id", jobID))
		}()

		if r.sem != nil {
			select {
			case r.sem <- struct{}{}:
				defer func() { <-r.sem }()
			case <-jobCtx.Done():
				return
			}
		}

		fn(jobCtx)
	}()

	return nil
}

// Cancel signals a running job to stop. Returns false if no such job is
// running, which is fine when the job already reached a terminal state.
func (r *Runner) Cancel(jobID string) bool {
	r.mu.Lock()
	cancel, ok := r.running[jobID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.logger.Info("job cancel requested", zap.String("job_id", jobID))
	cancel()
	return true
}

// ActiveCount returns the number of jobs currently tracked by the runner.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Shutdown cancels every running job and waits for their goroutines to
// drain, or until ctx expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("runner shutdown: %w", ctx.Err())
	}
}
