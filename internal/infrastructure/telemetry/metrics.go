package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Metrics exporters
const (
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
	ExporterNone       = "none"
)

// MeterProvider owns the SDK meter provider and, for the prometheus
// exporter, the registry scraped at /metrics.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewMeterProvider builds a push (otlp) or pull (prometheus) pipeline
func NewMeterProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}

	var reader sdkmetric.Reader
	switch cfg.MetricsExporter {
	case "", ExporterNone:
		logger.Info("Metrics export disabled")
		return mp, nil
	case ExporterOTLP:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		interval := cfg.MetricsExportInterval
		if interval <= 0 {
			interval = 60 * time.Second
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	case ExporterPrometheus:
		mp.registry = prometheus.NewRegistry()
		mp.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := otelprom.New(otelprom.WithRegisterer(mp.registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", cfg.MetricsExporter)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	mp.provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp.provider)

	logger.Info("Metrics export enabled", zap.String("exporter", cfg.MetricsExporter))
	return mp, nil
}

// Meter returns a named meter; no-op when export is disabled
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// Handler serves the prometheus registry. It returns nil for other exporters.
func (mp *MeterProvider) Handler() http.Handler {
	if mp.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{Registry: mp.registry})
}

// Shutdown flushes pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
