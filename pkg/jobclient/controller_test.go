package jobclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

// fakeTransport feeds scripted updates to the controller and records what it
// was asked to do.
type fakeTransport struct {
	mu      sync.Mutex
	updates chan models.StatusUpdate

	submitCalls int
	cancelCalls int
	fetchCalls  atomic.Int32

	fetchErr error
	result   *Result
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		updates: make(chan models.StatusUpdate, 32),
		result: &Result{
			JSON:   &models.JSONResult{JobName: "Test Job", RowsCount: 3},
			Format: models.FormatJSON,
		},
	}
}

func (f *fakeTransport) Submit(ctx context.Context, req *models.GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	return "job-1", nil
}

func (f *fakeTransport) OpenStatusChannel(ctx context.Context, jobID string) (<-chan models.StatusUpdate, func(), error) {
	return f.updates, func() {}, nil
}

func (f *fakeTransport) Cancel(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeTransport) FetchResult(ctx context.Context, jobID string) (*Result, error) {
	f.fetchCalls.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.result, nil
}

func (f *fakeTransport) send(update models.StatusUpdate) {
	f.updates <- update
}

func statusUpdate(s models.JobStatus) models.StatusUpdate {
	return models.StatusUpdate{Status: &s}
}

func progressUpdate(p int) models.StatusUpdate {
	return models.StatusUpdate{Progress: &p}
}

func submitJob(t *testing.T, c *Controller) {
	t.Helper()
	jobID, err := c.Submit(context.Background(), &models.GenerateRequest{})
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
}

func TestControllerHappyPath(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, zap.NewNop())

	var snapshots []Snapshot
	var mu sync.Mutex
	c.OnChange(func(s Snapshot) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	})

	submitJob(t, c)
	assert.Equal(t, models.JobPending, c.Snapshot().Status)

	ft.send(statusUpdate(models.JobInitializing))
	ft.send(statusUpdate(models.JobRunning))
	ft.send(progressUpdate(10))
	ft.send(progressUpdate(90))
	ft.send(statusUpdate(models.JobCompleted))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	snap := c.Snapshot()
	assert.Equal(t, models.JobCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)

	result, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, "Test Job", result.JSON.JobName)
	assert.Equal(t, int32(1), ft.fetchCalls.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, snapshots)
	assert.Equal(t, models.JobCompleted, snapshots[len(snapshots)-1].Status)
}

func TestControllerDiscardsUpdatesAfterCancel(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, zap.NewNop())

	submitJob(t, c)
	ft.send(statusUpdate(models.JobRunning))

	require.Eventually(t, func() bool {
		return c.Snapshot().Status == models.JobRunning
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Cancel(context.Background()))
	assert.Equal(t, models.JobCancelled, c.Snapshot().Status)

	// Late updates from the backend arrive after the local cancel.
	ft.send(statusUpdate(models.JobRunning))
	ft.send(progressUpdate(95))
	close(ft.updates)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	snap := c.Snapshot()
	assert.Equal(t, models.JobCancelled, snap.Status)
	assert.NotEqual(t, 95, snap.Progress)
	assert.Equal(t, int32(0), ft.fetchCalls.Load())
	assert.Equal(t, 1, ft.cancelCalls)
}

func TestControllerFetchesResultOnce(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, zap.NewNop())

	submitJob(t, c)
	ft.send(statusUpdate(models.JobCompleted))
	ft.send(statusUpdate(models.JobCompleted))
	close(ft.updates)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	assert.Equal(t, int32(1), ft.fetchCalls.Load())
}

func TestControllerRejectsConcurrentSubmit(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, zap.NewNop())

	submitJob(t, c)

	_, err := c.Submit(context.Background(), &models.GenerateRequest{})
	require.ErrorIs(t, err, apperrors.ErrJobInFlight)

	// After the job settles the controller accepts a new one.
	ft.send(statusUpdate(models.JobFailed))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	ft.updates = make(chan models.StatusUpdate, 32)
	_, err = c.Submit(context.Background(), &models.GenerateRequest{})
	require.NoError(t, err)
}

func TestControllerResultRetrievalFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.fetchErr = errors.New("connection reset")
	c := NewController(ft, zap.NewNop())

	submitJob(t, c)
	ft.send(statusUpdate(models.JobCompleted))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	// The job stays completed even though the payload is gone.
	assert.Equal(t, models.JobCompleted, c.Snapshot().Status)

	_, err := c.Result()
	require.ErrorIs(t, err, apperrors.ErrResultRetrieval)
}

func TestControllerRecordsFailure(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, zap.NewNop())

	submitJob(t, c)
	failed := models.JobFailed
	ft.send(models.StatusUpdate{Status: &failed, Error: "llm provider not configured"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))

	snap := c.Snapshot()
	assert.Equal(t, models.JobFailed, snap.Status)
	assert.Equal(t, "llm provider not configured", snap.Error)

	_, err := c.Result()
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrResultRetrieval)
}

func TestControllerIgnoresStatusRegression(t *testing.T) {
	ft := newFakeTransport()
	c := NewController(ft, zap.NewNop())

	submitJob(t, c)
	ft.send(statusUpdate(models.JobRunning))
	ft.send(statusUpdate(models.JobPending))
	ft.send(progressUpdate(30))

	require.Eventually(t, func() bool {
		return c.Snapshot().Progress == 30
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.JobRunning, c.Snapshot().Status)
}
