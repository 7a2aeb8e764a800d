package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

func newTestRateProvider(t *testing.T, handler http.HandlerFunc) *HTTPRateProvider {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewHTTPRateProvider(srv.URL+"/v6/latest/{base}", time.Second, testGuard("exchange-rate"), zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewHTTPRateProvider_RequiresURL(t *testing.T) {
	_, err := NewHTTPRateProvider("", 0, nil, nil)
	assert.ErrorIs(t, err, ErrRateURLRequired)
}

func TestHTTPRateProvider_FetchRate(t *testing.T) {
	p := newTestRateProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v6/latest/KRW", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","base_code":"KRW","rates":{"KRW":1,"USD":0.000721,"JPY":0.1093}}`))
	})

	rate, err := p.FetchRate(context.Background(), "krw", "usd")
	require.NoError(t, err)
	assert.Equal(t, "0.000721", rate.String())
}

func TestHTTPRateProvider_MissingQuote(t *testing.T) {
	p := newTestRateProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"result": "success", "rates": map[string]any{"JPY": 0.1}})
	})

	_, err := p.FetchRate(context.Background(), "KRW", "USD")
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestHTTPRateProvider_UpstreamFailureIsRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestRateProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": "success", "rates": map[string]any{"USD": 0.00075}})
	})

	rate, err := p.FetchRate(context.Background(), "KRW", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.00075", rate.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPRateProvider_ErrorResult(t *testing.T) {
	p := newTestRateProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"result": "error", "error-type": "unsupported-code"})
	})

	_, err := p.FetchRate(context.Background(), "KRW", "USD")
	assert.Equal(t, shared.KindTransientPlatform, shared.KindOf(err))
}
