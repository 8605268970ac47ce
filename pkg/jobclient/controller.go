package jobclient

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// Snapshot is the controller's view of the tracked job at one moment.
type Snapshot struct {
	JobID    string
	Status   models.JobStatus
	Progress int
	Error    string
}

// Controller tracks a single generation job against a Transport. It owns the
// client-side state machine: updates that would move the job backwards or
// past a terminal state are discarded, cancellation is reflected locally
// before the backend confirms it, and the result is fetched exactly once
// when the job completes.
type Controller struct {
	transport Transport
	logger    *zap.Logger

	mu           sync.Mutex
	jobID        string
	status       models.JobStatus
	progress     int
	errMsg       string
	result       *Result
	resultErr    error
	closeStream  func()
	streamOpen   bool
	onChange     func(Snapshot)
	done         chan struct{}
}

// NewController creates a controller with no tracked job.
func NewController(transport Transport, logger *zap.Logger) *Controller {
	return &Controller{
		transport: transport,
		logger:    logger.Named("jobclient"),
	}
}

// OnChange registers a callback invoked after every accepted state change.
// The callback runs without the controller lock held.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Submit sends the request and starts following the new job. A second submit
// while the tracked job is still live returns ErrJobInFlight; once the job
// is terminal the controller can be reused.
func (c *Controller) Submit(ctx context.Context, req *models.GenerateRequest) (string, error) {
	c.mu.Lock()
	if c.jobID != "" && !c.status.Terminal() {
		c.mu.Unlock()
		return "", fmt.Errorf("job %s: %w", c.jobID, apperrors.ErrJobInFlight)
	}
	c.mu.Unlock()

	jobID, err := c.transport.Submit(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}

	c.mu.Lock()
	c.jobID = jobID
	c.status = models.JobPending
	c.progress = 0
	c.errMsg = ""
	c.result = nil
	c.resultErr = nil
	c.streamOpen = false
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.logger.Info("job submitted", zap.String("job_id", jobID))
	c.notify()

	if err := c.openStream(ctx); err != nil {
		return jobID, err
	}
	return jobID, nil
}

// openStream opens the status stream once per submitted job. Repeat calls
// while a stream is live are no-ops, so reconnect-happy callers cannot fork
// the update pump.
func (c *Controller) openStream(ctx context.Context) error {
	c.mu.Lock()
	if c.streamOpen || c.jobID == "" {
		c.mu.Unlock()
		return nil
	}
	jobID := c.jobID
	c.streamOpen = true
	c.mu.Unlock()

	updates, closeStream, err := c.transport.OpenStatusChannel(ctx, jobID)
	if err != nil {
		c.mu.Lock()
		c.streamOpen = false
		c.mu.Unlock()
		return fmt.Errorf("open status channel for job %s: %w", jobID, err)
	}

	c.mu.Lock()
	c.closeStream = closeStream
	c.mu.Unlock()

	go c.pump(ctx, jobID, updates)
	return nil
}

// pump applies stream updates until the stream closes or the job goes
// terminal.
func (c *Controller) pump(ctx context.Context, jobID string, updates <-chan models.StatusUpdate) {
	for update := range updates {
		if c.apply(jobID, update) {
			c.notify()
		}
		c.mu.Lock()
		terminal := c.status.Terminal()
		c.mu.Unlock()
		if terminal {
			break
		}
	}
	c.finish(ctx, jobID)
}

// apply folds one update into the tracked state. Returns true if anything
// changed.
func (c *Controller) apply(jobID string, update models.StatusUpdate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jobID != jobID {
		return false
	}
	if c.status.Terminal() {
		// Late updates from an already-decided job carry no information.
		return false
	}

	changed := false
	if update.Status != nil && c.status.CanTransition(*update.Status) && *update.Status != c.status {
		c.status = *update.Status
		changed = true
	}
	if update.Progress != nil && !c.status.Terminal() && *update.Progress != c.progress {
		c.progress = *update.Progress
		changed = true
	}
	if update.Status != nil && *update.Status == models.JobCompleted {
		c.progress = 100
	}
	if update.Error != "" {
		c.errMsg = update.Error
		changed = true
	}
	return changed
}

// finish closes the stream and, when the job completed, fetches the result.
// The fetch happens at most once; a retrieval failure leaves the job
// completed but marks the result unavailable.
func (c *Controller) finish(ctx context.Context, jobID string) {
	c.mu.Lock()
	if c.jobID != jobID {
		c.mu.Unlock()
		return
	}
	closeStream := c.closeStream
	c.closeStream = nil
	c.streamOpen = false
	fetch := c.status == models.JobCompleted && c.result == nil && c.resultErr == nil
	done := c.done
	c.mu.Unlock()

	if closeStream != nil {
		closeStream()
	}

	if fetch {
		result, err := c.transport.FetchResult(ctx, jobID)
		c.mu.Lock()
		if err != nil {
			c.resultErr = fmt.Errorf("job %s: %v: %w", jobID, err, apperrors.ErrResultRetrieval)
			c.logger.Error("result retrieval failed", zap.String("job_id", jobID), zap.Error(err))
		} else {
			c.result = result
		}
		c.mu.Unlock()
		c.notify()
	}

	if done != nil {
		select {
		case <-done:
		default:
			close(done)
		}
	}
}

// Cancel requests cancellation and reflects it locally right away, so the
// caller sees the job cancelled even before the backend acknowledges.
// Cancelling a terminal or untracked job is a no-op.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.jobID == "" || c.status.Terminal() {
		c.mu.Unlock()
		return nil
	}
	jobID := c.jobID
	c.status = models.JobCancelled
	c.mu.Unlock()

	c.logger.Info("job cancelled locally", zap.String("job_id", jobID))
	c.notify()

	if err := c.transport.Cancel(ctx, jobID); err != nil {
		// The local state already reflects the user's intent.
		c.logger.Warn("backend cancel failed", zap.String("job_id", jobID), zap.Error(err))
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	return nil
}

// Wait blocks until the tracked job reaches a terminal state and its result
// handling is done, or the context expires.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current view of the tracked job.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		JobID:    c.jobID,
		Status:   c.status,
		Progress: c.progress,
		Error:    c.errMsg,
	}
}

// Result returns the fetched result of a completed job. It returns
// ErrResultRetrieval if the fetch failed, and an error for jobs that are not
// completed.
func (c *Controller) Result() (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resultErr != nil {
		return nil, c.resultErr
	}
	if c.result == nil {
		return nil, fmt.Errorf("job %s is %s: no result", c.jobID, c.status)
	}
	return c.result, nil
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	snap := Snapshot{JobID: c.jobID, Status: c.status, Progress: c.progress, Error: c.errMsg}
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}
