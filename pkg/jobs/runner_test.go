package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/apperrors"
)

func TestRunnerExecutesJob(t *testing.T) {
	r := NewRunner(2, zap.NewNop())

	done := make(chan struct{})
	err := r.Start("job-1", func(ctx context.Context) {
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestRunnerRejectsDuplicateID(t *testing.T) {
	r := NewRunner(2, zap.NewNop())

	release := make(chan struct{})
	require.NoError(t, r.Start("job-1", func(ctx context.Context) {
		<-release
	}))

	err := r.Start("job-1", func(ctx context.Context) {})
	require.ErrorIs(t, err, apperrors.ErrJobInFlight)

	close(release)
}

func TestRunnerCancelStopsJob(t *testing.T) {
	r := NewRunner(2, zap.NewNop())

	stopped := make(chan struct{})
	require.NoError(t, r.Start("job-1", func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	}))

	// Wait for registration, then cancel.
	require.Eventually(t, func() bool { return r.Cancel("job-1") || r.ActiveCount() == 0 },
		time.Second, 5*time.Millisecond)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}
}

func TestRunnerCancelUnknownJob(t *testing.T) {
	r := NewRunner(2, zap.NewNop())
	assert.False(t, r.Cancel("nope"))
}

func TestRunnerHonorsConcurrencyLimit(t *testing.T) {
	r := NewRunner(1, zap.NewNop())

	var active, peak atomic.Int32
	release := make(chan struct{})
	body := func(ctx context.Context) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
	}

	require.NoError(t, r.Start("a", body))
	require.NoError(t, r.Start("b", body))
	require.NoError(t, r.Start("c", body))

	time.Sleep(50 * time.Millisecond)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.LessOrEqual(t, peak.Load(), int32(1))
}

func TestRunnerShutdownCancelsRunningJobs(t *testing.T) {
	r := NewRunner(0, zap.NewNop())

	var observed atomic.Bool
	require.NoError(t, r.Start("job-1", func(ctx context.Context) {
		<-ctx.Done()
		observed.Store(true)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.True(t, observed.Load())
	assert.Equal(t, 0, r.ActiveCount())

	err := r.Start("job-2", func(ctx context.Context) {})
	require.Error(t, err)
}
