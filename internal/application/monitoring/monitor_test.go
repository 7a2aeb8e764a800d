package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/cache"
	"github.com/YKLee98/naver-sub003/internal/testutil"
)

type notifications struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (n *notifications) Notify(_ context.Context, a *alert.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, *a)
	return nil
}

func (n *notifications) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type publisher struct {
	mu      sync.Mutex
	samples []FleetMetrics
}

func (p *publisher) Publish(_ context.Context, m FleetMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, m)
}

type monitorFixture struct {
	monitor   *Monitor
	alerts    *testutil.AlertStore
	mappings  *testutil.MappingStore
	jobs      *testutil.JobStore
	clock     *testutil.ManualClock
	notified  *notifications
	published *publisher
}

func newMonitorFixture(t *testing.T, mappings ...*integration.Mapping) *monitorFixture {
	t.Helper()
	f := &monitorFixture{
		alerts:    testutil.NewAlertStore(),
		mappings:  testutil.NewMappingStore(mappings...),
		jobs:      testutil.NewJobStore(),
		clock:     testutil.NewManualClock(testutil.Epoch),
		notified:  &notifications{},
		published: &publisher{},
	}
	f.monitor = NewMonitor(Deps{
		Alerts:    f.alerts,
		Mappings:  f.mappings,
		Jobs:      f.jobs,
		Cache:     cache.NewMemoryCache(time.Minute),
		Notifier:  f.notified,
		Publisher: f.published,
		Clock:     f.clock,
	}, DefaultConfig())
	return f
}

func (f *monitorFixture) finishedJob(t *testing.T, succeeded, failed int) {
	t.Helper()
	job, err := syncjob.NewSyncJob(syncjob.TypeFull, syncjob.Options{}, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, job.Start(f.clock.Now()))
	job.SetTotal(succeeded + failed)
	for range succeeded {
		job.RecordSuccess()
	}
	for range failed {
		job.RecordFailure("SKU-X", errors.New("boom"), f.clock.Now())
	}
	require.NoError(t, job.Complete(f.clock.Now()))
	require.NoError(t, f.jobs.Create(context.Background(), job))
}

func TestMonitor_SampleCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("raises one alert per detected condition", func(t *testing.T) {
		f := newMonitorFixture(t,
			testutil.NewMapping("HEALTHY", testutil.WithQuantities(50, 50)),
			testutil.NewMapping("EMPTY", testutil.WithQuantities(0, 12)),
			testutil.NewMapping("DRIFT", testutil.WithQuantities(100, 70)),
			testutil.NewMapping("LOW", testutil.WithQuantities(8, 8)),
		)

		created, err := f.monitor.SampleCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, created)
		assert.Equal(t, 3, f.notified.count())

		bySKU := map[string]alert.Alert{}
		for _, a := range f.alerts.All() {
			bySKU[a.SKU] = a
		}
		assert.Equal(t, alert.TypeOutOfStock, bySKU["EMPTY"].Type)
		assert.Equal(t, alert.SeverityCritical, bySKU["EMPTY"].Severity)
		assert.Equal(t, alert.TypeDiscrepancy, bySKU["DRIFT"].Type)
		assert.Equal(t, alert.SeverityHigh, bySKU["DRIFT"].Severity)
		assert.Equal(t, alert.TypeLowStock, bySKU["LOW"].Type)
		assert.Equal(t, alert.SeverityMedium, bySKU["LOW"].Severity)
		assert.NotContains(t, bySKU, "HEALTHY")
	})

	t.Run("does not repeat an unresolved condition", func(t *testing.T) {
		f := newMonitorFixture(t, testutil.NewMapping("EMPTY", testutil.WithQuantities(0, 0)))

		_, err := f.monitor.SampleCycle(ctx)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
		created, err := f.monitor.SampleCycle(ctx)
		require.NoError(t, err)

		assert.Zero(t, created)
		assert.Len(t, f.alerts.All(), 1)
	})

	t.Run("a recurring condition after resolution is a new alert", func(t *testing.T) {
		f := newMonitorFixture(t, testutil.NewMapping("EMPTY", testutil.WithQuantities(0, 0)))

		_, err := f.monitor.SampleCycle(ctx)
		require.NoError(t, err)
		first := f.alerts.All()[0]
		ok, err := f.monitor.ResolveAlert(ctx, first.ID, "ops")
		require.NoError(t, err)
		require.True(t, ok)

		f.clock.Advance(time.Minute)
		created, err := f.monitor.SampleCycle(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, created)
		all := f.alerts.All()
		require.Len(t, all, 2)
		assert.NotEqual(t, all[0].ID, all[1].ID)
	})

	t.Run("publishes and caches fleet metrics", func(t *testing.T) {
		f := newMonitorFixture(t,
			testutil.NewMapping("HEALTHY", testutil.WithQuantities(50, 50)),
			testutil.NewMapping("EMPTY", testutil.WithQuantities(0, 12)),
			testutil.NewMapping("LOW", testutil.WithQuantities(8, 9)),
			testutil.NewMapping("OFF", testutil.WithQuantities(10, 10), testutil.Inactive()),
		)
		f.finishedJob(t, 8, 2)

		_, err := f.monitor.SampleCycle(ctx)
		require.NoError(t, err)

		require.Len(t, f.published.samples, 1)
		m := f.published.samples[0]
		assert.Equal(t, 3, m.ActiveMappings)
		assert.Equal(t, 1, m.OutOfSync)
		assert.Equal(t, 2, m.Synced)
		assert.Equal(t, 1, m.OutOfStock)
		assert.Equal(t, 1, m.LowStock)
		assert.Equal(t, 1, m.JobsFinished)
		assert.InDelta(t, 0.8, m.SyncSuccessRate, 1e-9)
		assert.Equal(t, 1, m.UnresolvedAlerts[alert.SeverityCritical])
		assert.Equal(t, 1, m.UnresolvedAlerts[alert.SeverityMedium])

		cached, err := f.monitor.Metrics(ctx)
		require.NoError(t, err)
		assert.Equal(t, m.ActiveMappings, cached.ActiveMappings)
		assert.Len(t, f.published.samples, 1, "served from cache")
	})
}

func TestMonitor_Metrics_ComputesOnMiss(t *testing.T) {
	f := newMonitorFixture(t, testutil.NewMapping("A", testutil.WithQuantities(30, 30)))

	m, err := f.monitor.Metrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, m.ActiveMappings)
	assert.Equal(t, 1, m.Synced)
	assert.Equal(t, 1.0, m.SyncSuccessRate, "no finished jobs")
	assert.Len(t, f.published.samples, 1)
}

func TestMonitor_AgingSweep(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	old, err := alert.New(alert.TypeLowStock, alert.SeverityMedium, "OLD", "stock low", nil, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.monitor.Raise(ctx, old))

	f.clock.Advance(23 * time.Hour)
	fresh, err := alert.New(alert.TypeLowStock, alert.SeverityMedium, "FRESH", "stock low", nil, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.monitor.Raise(ctx, fresh))

	f.clock.Advance(2 * time.Hour)
	resolved, purged, err := f.monitor.AgingSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Zero(t, purged)

	visible, err := f.monitor.ListAlerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 2, "resolved alerts stay visible during the grace period")

	open, err := f.monitor.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "FRESH", open[0].SKU)

	for _, a := range f.alerts.All() {
		if a.SKU == "OLD" {
			assert.True(t, a.Resolved)
			assert.Equal(t, ResolvedBySystem, a.ResolvedBy)
		}
	}

	f.clock.Advance(time.Hour)
	_, purged, err = f.monitor.AgingSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Len(t, f.alerts.All(), 1)
}

func TestMonitor_ResolveAlert(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	a, err := alert.New(alert.TypeSyncFailed, alert.SeverityMedium, "SKU-1", "sync failed", nil, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.monitor.Raise(ctx, a))

	ok, err := f.monitor.ResolveAlert(ctx, a.ID, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.monitor.ResolveAlert(ctx, a.ID, "")
	require.NoError(t, err)
	assert.False(t, ok, "already resolved")

	ok, err = f.monitor.ResolveAlert(ctx, "missing", "")
	require.NoError(t, err)
	assert.False(t, ok)

	f.clock.Advance(2 * time.Hour)
	visible, err := f.monitor.ListAlerts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible, "hidden once the grace period passes")
}

func TestMonitor_Raise_SameInstantKeepsBoth(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	for i := 0; i < 2; i++ {
		a, err := alert.New(alert.TypeUpdateFailed, alert.SeverityHigh, "SKU-1", "push failed", nil, f.clock.Now())
		require.NoError(t, err)
		require.NoError(t, f.monitor.Raise(ctx, a))
	}

	assert.Len(t, f.alerts.All(), 2)
}

func TestMonitor_StartStop(t *testing.T) {
	f := newMonitorFixture(t, testutil.NewMapping("EMPTY", testutil.WithQuantities(0, 0)))
	ctx := context.Background()

	require.NoError(t, f.monitor.Start(ctx))
	require.NoError(t, f.monitor.Start(ctx), "second start is a no-op")

	assert.Eventually(t, func() bool { return f.notified.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, f.monitor.Stop(ctx))
}
