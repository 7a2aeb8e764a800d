package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Cache keys for the KRW->USD pair
var (
	activeRateKey    = fmt.Sprintf("exchange_rate:active:%s:%s", integration.BaseCurrency, integration.TargetCurrency)
	liveRateKey      = fmt.Sprintf("exchange_rate:live:%s:%s", integration.BaseCurrency, integration.TargetCurrency)
	rateCachePattern = "exchange_rate:*"
)

// RateConfig controls exchange rate caching
type RateConfig struct {
	// CacheTTL bounds how long the active record is served from cache
	CacheTTL time.Duration
	// LiveCacheTTL bounds how long a fetched live quote is reused
	LiveCacheTTL time.Duration
}

// ExchangeRateService owns the single active KRW->USD rate
type ExchangeRateService struct {
	repo     integration.ExchangeRateRepository
	provider integration.RateProvider
	cache    shared.Cache
	cfg      RateConfig
	clock    shared.Clock
	logger   *zap.Logger
}

// NewExchangeRateService creates an ExchangeRateService. provider may be nil,
// in which case only manual rates are available.
func NewExchangeRateService(
	repo integration.ExchangeRateRepository,
	provider integration.RateProvider,
	cache shared.Cache,
	cfg RateConfig,
	clock shared.Clock,
	logger *zap.Logger,
) *ExchangeRateService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeRateService{
		repo:     repo,
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// SetManualRate deactivates every active rate and activates a new manual one
func (s *ExchangeRateService) SetManualRate(ctx context.Context, rate decimal.Decimal, reason string, validDays int) (*integration.ExchangeRate, error) {
	r, err := integration.NewManualExchangeRate(rate, reason, validDays, s.clock.Now())
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if err := s.repo.ReplaceActive(ctx, r); err != nil {
		return nil, fmt.Errorf("replace active exchange rate: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("Manual exchange rate set",
		zap.String("rate", r.Rate.String()),
		zap.String("reason", reason),
		zap.Int("valid_days", validDays),
	)
	return r, nil
}

// CurrentRate returns the active rate if one is valid now, else a live quote
func (s *ExchangeRateService) CurrentRate(ctx context.Context) (*integration.ExchangeRate, error) {
	now := s.clock.Now()

	var cached integration.ExchangeRate
	if s.cacheGet(ctx, activeRateKey, &cached) && cached.IsValidAt(now) {
		return &cached, nil
	}

	active, err := s.repo.FindActive(ctx, integration.BaseCurrency, integration.TargetCurrency)
	switch {
	case err == nil && active.IsValidAt(now):
		s.cacheSet(ctx, activeRateKey, active, s.cfg.CacheTTL)
		return active, nil
	case err == nil:
		s.logger.Warn("Active exchange rate expired, falling back to live rate",
			zap.Timep("valid_until", active.ValidUntil))
	case errors.Is(err, shared.ErrNotFound):
	default:
		return nil, fmt.Errorf("load active exchange rate: %w", err)
	}

	return s.LiveRate(ctx)
}

// LiveRate returns a provider quote, reusing it for LiveCacheTTL
func (s *ExchangeRateService) LiveRate(ctx context.Context) (*integration.ExchangeRate, error) {
	var cached integration.ExchangeRate
	if s.cacheGet(ctx, liveRateKey, &cached) {
		return &cached, nil
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: %w", integration.ErrNoActiveExchangeRate, shared.ErrNotFound)
	}

	quote, err := s.provider.FetchRate(ctx, integration.BaseCurrency, integration.TargetCurrency)
	if err != nil {
		return nil, err
	}
	live := integration.NewLiveExchangeRate(quote, s.clock.Now())
	s.cacheSet(ctx, liveRateKey, live, s.cfg.LiveCacheTTL)
	return live, nil
}

// Resolve picks the live quote when live is true, otherwise CurrentRate
func (s *ExchangeRateService) Resolve(ctx context.Context, live bool) (*integration.ExchangeRate, error) {
	if live {
		return s.LiveRate(ctx)
	}
	return s.CurrentRate(ctx)
}

// History returns the newest rate records first
func (s *ExchangeRateService) History(ctx context.Context, limit int) ([]integration.ExchangeRate, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *ExchangeRateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeleteByPattern(ctx, rateCachePattern); err != nil {
		s.logger.Warn("Failed to invalidate exchange rate cache", zap.Error(err))
	}
}

func (s *ExchangeRateService) cacheGet(ctx context.Context, key string, dest *integration.ExchangeRate) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("Exchange rate cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (s *ExchangeRateService) cacheSet(ctx context.Context, key string, r *integration.ExchangeRate, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, r, ttl); err != nil {
		s.logger.Warn("Exchange rate cache write failed", zap.String("key", key), zap.Error(err))
	}
}
