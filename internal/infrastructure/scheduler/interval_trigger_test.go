package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIntervalTrigger_RejectsZeroInterval(t *testing.T) {
	tr := NewIntervalTrigger(IntervalTriggerConfig{Name: "noop"}, func(context.Context) error { return nil }, zap.NewNop())
	assert.ErrorIs(t, tr.Start(context.Background()), ErrInvalidConfig)
}

func TestIntervalTrigger_RunsRepeatedly(t *testing.T) {
	var runs atomic.Int32
	tr := NewIntervalTrigger(IntervalTriggerConfig{Name: "sample", Interval: 5 * time.Millisecond, RunOnStart: true},
		func(context.Context) error {
			if runs.Add(1)%2 == 0 {
				return errors.New("transient")
			}
			return nil
		}, zap.NewNop())

	require.NoError(t, tr.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, tr.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestIntervalTrigger_RunOnStart(t *testing.T) {
	fired := make(chan struct{}, 1)
	tr := NewIntervalTrigger(IntervalTriggerConfig{Name: "aging", Interval: time.Hour, RunOnStart: true},
		func(context.Context) error {
			fired <- struct{}{}
			return nil
		}, zap.NewNop())

	require.NoError(t, tr.Start(context.Background()))
	defer func() { _ = tr.Stop(context.Background()) }()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not run on start")
	}
}

func TestIntervalTrigger_SurvivesPanic(t *testing.T) {
	var runs atomic.Int32
	tr := NewIntervalTrigger(IntervalTriggerConfig{Name: "panicky", Interval: 5 * time.Millisecond},
		func(context.Context) error {
			if runs.Add(1) == 1 {
				panic("first tick")
			}
			return nil
		}, zap.NewNop())

	require.NoError(t, tr.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, tr.Stop(context.Background()))
}
