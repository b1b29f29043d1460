package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int64
}

func (c *countingRefresher) RefreshAll(_ context.Context) {
	c.calls.Add(1)
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	refresher := &countingRefresher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(refresher, 20*time.Millisecond, logger)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StopPreventsFurtherRuns(t *testing.T) {
	refresher := &countingRefresher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(refresher, 10*time.Millisecond, logger)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		return refresher.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	after := refresher.calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, refresher.calls.Load()-after, int64(1))
}
