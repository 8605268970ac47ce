package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasynth-ai/datasynth-engine/pkg/models"
)

func TestResolveDateBound(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		bound string
		want  time.Time
	}{
		{"now", now},
		{"", now},
		{"-1y", now.AddDate(-1, 0, 0)},
		{"+30d", now.AddDate(0, 0, 30)},
		{"-2m", now.AddDate(0, -2, 0)},
		{"+1w", now.AddDate(0, 0, 7)},
		{"-6h", now.Add(-6 * time.Hour)},
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := resolveDateBound(tt.bound, now)
		require.NoError(t, err, tt.bound)
		assert.Equal(t, tt.want, got, tt.bound)
	}

	_, err := resolveDateBound("yesterday", now)
	assert.Error(t, err)
}

func TestStrftimeToLayout(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 5, 9, 0, time.UTC)

	tests := []struct {
		format string
		want   string
	}{
		{"%Y-%m-%d", "2026-08-31"},
		{"%Y-%m-%d %H:%M:%S", "2026-08-31 14:05:09"},
		{"%d %B %Y", "31 August 2026"},
		{"%a %b %d", "Mon Aug 31"},
		{"100%%", "100%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ts.Format(strftimeToLayout(tt.format)), tt.format)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 5, 9, 0, time.UTC)

	assert.Equal(t, "2026-08-31T14:05:09Z", formatTimestamp(ts, "iso"))
	assert.Equal(t, "2026-08-31T14:05:09Z", formatTimestamp(ts, ""))
	assert.Equal(t, ts.Unix(), formatTimestamp(ts, "timestamp"))
	assert.Equal(t, "2026-08-31", formatTimestamp(ts, "%Y-%m-%d"))
}

func TestTimestampValueWithinBounds(t *testing.T) {
	e := New(nil, zap.NewNop())

	value, err := e.timestampValue(models.TimestampParams{MinDate: "-1y", MaxDate: "now", Format: "iso"})
	require.NoError(t, err)

	ts, err := time.Parse(time.RFC3339, value.(string))
	require.NoError(t, err)
	assert.True(t, ts.After(time.Now().AddDate(-1, 0, -1)))
	assert.True(t, ts.Before(time.Now().Add(time.Minute)))
}

func TestTimestampValueInvertedBoundsFail(t *testing.T) {
	e := New(nil, zap.NewNop())

	_, err := e.timestampValue(models.TimestampParams{MinDate: "now", MaxDate: "-1y", Format: "iso"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolves after")
}
