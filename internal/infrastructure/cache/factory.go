package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/webhook"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/config"
)

// Stores bundles the shared cache and the webhook receipt store
type Stores struct {
	Cache    shared.Cache
	Receipts webhook.ReceiptStore
	// Redis is nil when running on in-memory fallbacks
	Redis *redis.Client
}

// Close releases the receipt store and the Redis client
func (s *Stores) Close() error {
	return s.Receipts.Close()
}

// StoreFactory creates cache-backed stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(RedisConfig) (*redis.Client, error)
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect:               NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemory creates process-local stores.
// WARNING: in-memory receipts are not shared across instances, so a redelivery
// landing on another replica is processed again.
func (f *StoreFactory) CreateInMemory() *Stores {
	return &Stores{
		Cache:    NewMemoryCache(time.Minute),
		Receipts: NewInMemoryReceiptStore(),
	}
}

// Create connects to Redis when enabled and falls back to in-memory stores if allowed
func (f *StoreFactory) Create() (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory cache and receipt store")
		return f.CreateInMemory(), nil
	}

	client, err := f.connect(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis cache and receipt store")
		return &Stores{
			Cache:    NewRedisCache(client, f.redisConfig.KeyPrefix),
			Receipts: NewRedisReceiptStore(client),
			Redis:    client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Webhook redeliveries may be processed twice in multi-instance deployments.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
