package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/application/monitoring"
	"github.com/YKLee98/naver-sub003/internal/application/reconciliation"
	syncjobapp "github.com/YKLee98/naver-sub003/internal/application/syncjob"
	webhookapp "github.com/YKLee98/naver-sub003/internal/application/webhook"
	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/cache"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/config"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/logger"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/platform"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/resilience"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/scheduler"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/telemetry"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/handler"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/middleware"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetryConfig(cfg)

	// OTel log bridge: rebuild the logger with the exporter core teed in
	logProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if telCfg.LogsEnabled {
		core := logProvider.Core(telCfg.ServiceName, logger.ParseLevel(cfg.Log.Level))
		if bridged, err := logger.New(logCfg, core); err == nil {
			log = bridged
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingEnabled {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)
	if err := telemetry.InstrumentDB(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	// Cache and webhook receipts
	stores, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).Create()
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}

	// Repositories
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	ledgerRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	rateRepo := persistence.NewGormExchangeRateRepository(db.DB)
	ruleRepo := persistence.NewGormPriceRuleRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)

	// Platform adapters, each behind its own guard
	naver, err := platform.NewNaverAdapter(platform.NaverConfigFrom(cfg.Naver),
		resilience.NewGuard(guardConfig("naver", cfg.Naver, cfg.Sync), log), log)
	if err != nil {
		log.Fatal("Failed to initialize Naver adapter", zap.Error(err))
	}
	shopify, err := platform.NewShopifyAdapter(platform.ShopifyConfigFrom(cfg.Shopify),
		resilience.NewGuard(guardConfig("shopify", cfg.Shopify, cfg.Sync), log), log)
	if err != nil {
		log.Fatal("Failed to initialize Shopify adapter", zap.Error(err))
	}
	platforms := integration.NewPlatformRegistry(naver, shopify)

	var rateProvider integration.RateProvider
	if cfg.Reconciliation.LiveRateURL != "" {
		p, err := platform.NewHTTPRateProvider(cfg.Reconciliation.LiveRateURL, cfg.Sync.CallTimeout,
			resilience.NewGuard(resilience.DefaultGuardConfig("exchange_rate"), log), log)
		if err != nil {
			log.Fatal("Failed to initialize exchange rate provider", zap.Error(err))
		}
		rateProvider = p
	}

	clock := shared.SystemClock{}
	thresholds := reconciliation.Thresholds{
		Critical:  cfg.Reconciliation.CriticalThreshold,
		Low:       cfg.Reconciliation.LowThreshold,
		Tolerance: cfg.Reconciliation.Tolerance,
	}

	// Application services
	rateService := reconciliation.NewExchangeRateService(rateRepo, rateProvider, stores.Cache,
		reconciliation.RateConfig{
			CacheTTL:     cfg.Reconciliation.RateCacheTTL,
			LiveCacheTTL: cfg.Reconciliation.LiveRateCacheTTL,
		}, clock, log)
	mappingService := reconciliation.NewMappingService(mappingRepo, ledgerRepo, clock)
	engine := reconciliation.NewEngine(reconciliation.Deps{
		Mappings:  mappingRepo,
		Ledger:    ledgerRepo,
		Platforms: platforms,
		Rates:     rateService,
		Clock:     clock,
		Logger:    log,
	}, reconciliation.Config{
		Thresholds:      thresholds,
		PriceEpsilon:    decimal.NewFromFloat(cfg.Reconciliation.PriceEpsilon),
		DefaultMargin:   decimal.NewFromFloat(cfg.Reconciliation.DefaultMargin),
		DefaultRounding: integration.RoundingStrategy(cfg.Reconciliation.DefaultRounding),
	})

	fleetPublisher, err := telemetry.NewFleetPublisher(meterProvider.Meter("sync.fleet"))
	if err != nil {
		log.Fatal("Failed to register fleet metrics", zap.Error(err))
	}
	monitor := monitoring.NewMonitor(monitoring.Deps{
		Alerts:    alertRepo,
		Mappings:  mappingRepo,
		Jobs:      jobRepo,
		Cache:     stores.Cache,
		Notifier:  monitoring.NewLogNotifier(log),
		Publisher: fleetPublisher,
		Clock:     clock,
		Logger:    log,
	}, monitoring.Config{
		SampleInterval:  cfg.Monitoring.SampleInterval,
		AgingInterval:   cfg.Monitoring.AgingInterval,
		AutoResolveAge:  cfg.Monitoring.AutoResolveAge,
		GracePeriod:     cfg.Monitoring.GracePeriod,
		MetricsCacheTTL: cfg.Monitoring.MetricsCacheTTL,
		Thresholds:      thresholds,
	})
	engine.SetAlertSink(monitor)

	orchestrator := syncjobapp.NewOrchestrator(syncjobapp.Deps{
		Jobs:     jobRepo,
		Mappings: mappingRepo,
		Rules:    ruleRepo,
		Engine:   engine,
		Rates:    rateService,
		Alerts:   monitor,
		Clock:    clock,
		Logger:   log,
	}, syncjobapp.Config{
		BatchSize:   cfg.Sync.BatchSize,
		Concurrency: cfg.Sync.Concurrency,
		BatchPause:  cfg.Sync.BatchPause,
	})
	dispatcher, err := scheduler.NewDispatcher(scheduler.DispatcherConfig{
		Workers:    cfg.Sync.Workers,
		QueueSize:  cfg.Sync.QueueSize,
		JobTimeout: cfg.Sync.JobTimeout,
	}, orchestrator, log)
	if err != nil {
		log.Fatal("Failed to create job dispatcher", zap.Error(err))
	}
	orchestrator.SetSubmitter(dispatcher)

	gateway := webhookapp.NewGateway(stores.Receipts, mappingRepo, engine, webhookapp.Config{
		Secret:     cfg.Webhook.ShopifySecret,
		ReceiptTTL: cfg.Webhook.ReceiptTTL,
		OrderTTL:   cfg.Webhook.OrderTTL,
	}, clock, log)
	if cfg.Webhook.ShopifySecret == "" {
		log.Warn("Webhook secret not configured, signature verification is disabled")
	}

	// Background workers
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	if err := dispatcher.Start(bgCtx); err != nil {
		log.Fatal("Failed to start job dispatcher", zap.Error(err))
	}
	if _, _, err := orchestrator.RecoverInterrupted(bgCtx); err != nil {
		log.Error("Failed to recover unfinished jobs", zap.Error(err))
	}
	if cfg.Monitoring.Enabled {
		if err := monitor.Start(bgCtx); err != nil {
			log.Fatal("Failed to start monitor", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}

	r, err := router.New(router.Config{
		ServiceName:        telCfg.ServiceName,
		TracingEnabled:     tracerProvider.Enabled(),
		MaxBodySize:        cfg.HTTP.MaxBodySize,
		WebhookMaxBodySize: cfg.Webhook.MaxBodySize,
		RateLimiter:        limiter,
		TrustedProxies:     cfg.HTTP.TrustedProxies,
	}, log, router.WithWebhooks(handler.NewWebhookHandler(gateway)))
	if err != nil {
		log.Fatal("Failed to create router", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if stores.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return stores.Redis.Ping(ctx).Err()
		}
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)
	systemHandler.Register(r.Engine())
	if h := meterProvider.Handler(); h != nil {
		r.Engine().GET("/metrics", gin.WrapH(h))
	}

	r.Register(systemHandler).
		Register(handler.NewSyncJobHandler(orchestrator)).
		Register(handler.NewInventoryHandler(engine, mappingService)).
		Register(handler.NewMappingHandler(mappingService)).
		Register(handler.NewExchangeRateHandler(rateService)).
		Register(handler.NewMonitoringHandler(monitor))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Handler(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Monitoring.Enabled {
		if err := monitor.Stop(shutdownCtx); err != nil {
			log.Warn("Monitor did not stop cleanly", zap.Error(err))
		}
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn("Dispatcher did not drain", zap.Error(err))
	}
	stopBackground()

	if err := stores.Close(); err != nil {
		log.Warn("Failed to close cache stores", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"meter":  meterProvider.Shutdown,
		"tracer": tracerProvider.Shutdown,
		"logs":   logProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	name := cfg.Telemetry.ServiceName
	if name == "" {
		name = cfg.App.Name
	}
	return telemetry.Config{
		ServiceName:            name,
		ServiceVersion:         version,
		CollectorEndpoint:      cfg.Telemetry.CollectorEndpoint,
		Insecure:               cfg.Telemetry.Insecure,
		TracingEnabled:         cfg.Telemetry.Enabled,
		SamplingRatio:          cfg.Telemetry.SamplingRatio,
		MetricsExporter:        cfg.Telemetry.MetricsExporter,
		MetricsExportInterval:  cfg.Telemetry.MetricsExportInterval,
		LogsEnabled:            cfg.Telemetry.LogsEnabled,
		ProfilingEnabled:       cfg.Telemetry.ProfilingEnabled,
		ProfilingServerAddress: cfg.Telemetry.ProfilingServerAddress,
		ProfilingTypes:         cfg.Telemetry.ProfilingTypes,
	}
}

// guardConfig merges per-platform throttling and breaker settings with the shared retry policy
func guardConfig(name string, p config.PlatformConfig, s config.SyncConfig) resilience.GuardConfig {
	g := resilience.DefaultGuardConfig(name)
	g.RatePerSecond = p.RatePerSecond
	g.Burst = p.Burst
	if p.BreakerFailures > 0 {
		g.BreakerFailures = p.BreakerFailures
	}
	if p.BreakerOpenTimeout > 0 {
		g.BreakerOpenTimeout = p.BreakerOpenTimeout
	}
	if s.CallTimeout > 0 {
		g.Timeout = s.CallTimeout
	}
	g.Retry.MaxAttempts = s.RetryAttempts
	g.Retry.InitialDelay = s.RetryInitialDelay
	g.Retry.Multiplier = s.RetryMultiplier
	g.Retry.MaxDelay = s.RetryMaxDelay
	return g
}
