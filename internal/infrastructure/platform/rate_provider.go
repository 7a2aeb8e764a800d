package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/resilience"
)

// rateProviderName labels quote source failures
const rateProviderName = "exchange-rate"

// ErrRateURLRequired is returned when no quote endpoint is configured
var ErrRateURLRequired = errors.New("exchange-rate: quote url is required")

// latestRatesResponse is the open.er-api.com style quote body
type latestRatesResponse struct {
	Result    string                 `json:"result"`
	BaseCode  string                 `json:"base_code"`
	Rates     map[string]json.Number `json:"rates"`
	ErrorType string                 `json:"error-type,omitempty"`
}

// HTTPRateProvider fetches live quotes from a JSON endpoint.
// The URL may contain a {base} placeholder for the base currency.
type HTTPRateProvider struct {
	url    string
	client *resty.Client
	guard  *resilience.Guard
	logger *zap.Logger
}

// NewHTTPRateProvider creates a rate provider for url
func NewHTTPRateProvider(url string, timeout time.Duration, guard *resilience.Guard, logger *zap.Logger) (*HTTPRateProvider, error) {
	if url == "" {
		return nil, ErrRateURLRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.DefaultGuardConfig(rateProviderName), logger)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRateProvider{
		url:    url,
		client: resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		guard:  guard,
		logger: logger.Named("rate_provider"),
	}, nil
}

// FetchRate returns how many units of target one unit of base buys
func (p *HTTPRateProvider) FetchRate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	base = strings.ToUpper(base)
	target = strings.ToUpper(target)

	return resilience.DoValue(ctx, p.guard, "fetch_rate", func(ctx context.Context) (decimal.Decimal, error) {
		var out latestRatesResponse
		resp, err := p.client.R().
			SetContext(ctx).
			SetPathParam("base", base).
			SetResult(&out).
			Get(p.url)
		if err != nil {
			return decimal.Zero, shared.NewTransientPlatformError(rateProviderName, err)
		}
		if resp.IsError() {
			if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
				return decimal.Zero, shared.NewTransientPlatformError(rateProviderName,
					fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, resp.StatusCode()))
			}
			return decimal.Zero, shared.NewValidationError(fmt.Sprintf("exchange-rate: quote rejected: HTTP %d", resp.StatusCode()))
		}
		if out.Result != "" && out.Result != "success" {
			return decimal.Zero, shared.NewTransientPlatformError(rateProviderName,
				fmt.Errorf("quote source reported %s %s", out.Result, out.ErrorType))
		}

		raw, ok := out.Rates[target]
		if !ok {
			return decimal.Zero, shared.NewValidationError(fmt.Sprintf("exchange-rate: no %s quote for %s", target, base))
		}
		rate, err := decimal.NewFromString(raw.String())
		if err != nil || !rate.IsPositive() {
			return decimal.Zero, shared.NewValidationError(fmt.Sprintf("exchange-rate: invalid %s/%s quote %q", base, target, raw))
		}
		p.logger.Debug("Fetched live rate",
			zap.String("base", base),
			zap.String("target", target),
			zap.String("rate", rate.String()),
		)
		return rate, nil
	})
}

// Ensure HTTPRateProvider implements RateProvider interface
var _ integration.RateProvider = (*HTTPRateProvider)(nil)
