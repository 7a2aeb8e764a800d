package telemetry

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/YKLee98/naver-sub003/internal/application/monitoring"
	"github.com/YKLee98/naver-sub003/internal/domain/alert"
)

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	cfg := Config{ServiceName: "naver-shopify-sync"}

	tp, err := NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	tp.EnableSpanProfiles()
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, mp.Handler())
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.Core("sync", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := NewProfiler(cfg, logger)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewMeterProvider_UnknownExporter(t *testing.T) {
	_, err := NewMeterProvider(context.Background(), Config{MetricsExporter: "statsd"}, zap.NewNop())
	assert.ErrorContains(t, err, "statsd")
}

func TestNewProfiler_RequiresServer(t *testing.T) {
	_, err := NewProfiler(Config{ProfilingEnabled: true}, zap.NewNop())
	assert.Error(t, err)
}

func TestProfileTypes(t *testing.T) {
	types, err := ProfileTypes(nil)
	require.NoError(t, err)
	assert.Contains(t, types, pyroscope.ProfileCPU)

	types, err = ProfileTypes([]string{"goroutines", "mutex_count"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileGoroutines, pyroscope.ProfileMutexCount}, types)

	_, err = ProfileTypes([]string{"gpu"})
	assert.Error(t, err)
}

func sample() monitoring.FleetMetrics {
	return monitoring.FleetMetrics{
		ActiveMappings:  10,
		Synced:          7,
		OutOfSync:       3,
		LowStock:        2,
		OutOfStock:      1,
		JobsFinished:    4,
		SyncSuccessRate: 0.75,
		UnresolvedAlerts: map[alert.Severity]int{
			alert.SeverityCritical: 1,
			alert.SeverityMedium:   2,
		},
	}
}

func TestFleetPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	pub, err := NewFleetPublisher(provider.Meter("test"))
	require.NoError(t, err)
	pub.Publish(ctx, sample())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	mappings, ok := byName["sync.mappings"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, mappings.DataPoints, 5)
	for _, dp := range mappings.DataPoints {
		state, _ := dp.Attributes.Value("state")
		if state.AsString() == "out_of_sync" {
			assert.Equal(t, int64(3), dp.Value)
		}
	}

	rate, ok := byName["sync.success_rate"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, rate.DataPoints, 1)
	assert.InDelta(t, 0.75, rate.DataPoints[0].Value, 1e-9)

	alerts, ok := byName["sync.alerts_unresolved"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, alerts.DataPoints, len(alert.AllSeverities()))
}

func TestMeterProvider_PrometheusHandler(t *testing.T) {
	ctx := context.Background()
	mp, err := NewMeterProvider(ctx, Config{ServiceName: "sync-test", MetricsExporter: ExporterPrometheus}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	pub, err := NewFleetPublisher(mp.Meter("fleet"))
	require.NoError(t, err)
	pub.Publish(ctx, sample())

	handler := mp.Handler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "sync_mappings")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestLevelCore(t *testing.T) {
	c := &levelCore{Core: zapcore.NewNopCore(), min: zapcore.WarnLevel}
	assert.False(t, c.Enabled(zapcore.InfoLevel))
	_, ok := c.With(nil).(*levelCore)
	assert.True(t, ok)
}
