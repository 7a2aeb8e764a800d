package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/resilience"
)

const (
	testNaverClientID = "naver-app"
	testNaverSecret   = "$2a$04$CCCCCCCCCCCCCCCCCCCCC."
)

func testGuard(name string) *resilience.Guard {
	return resilience.NewGuard(resilience.GuardConfig{
		Name:    name,
		Timeout: 2 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			Multiplier:   1,
		},
		BreakerFailures:         10,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenRequests: 1,
	}, zap.NewNop())
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestNaverConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *NaverConfig
		wantErr error
	}{
		{
			name:    "valid config",
			config:  &NaverConfig{ClientID: testNaverClientID, ClientSecret: testNaverSecret},
			wantErr: nil,
		},
		{
			name:    "missing client id",
			config:  &NaverConfig{ClientSecret: testNaverSecret},
			wantErr: ErrNaverConfigMissingClientID,
		},
		{
			name:    "missing client secret",
			config:  &NaverConfig{ClientID: testNaverClientID},
			wantErr: ErrNaverConfigMissingClientSecret,
		},
		{
			name:    "secret is not a bcrypt salt",
			config:  &NaverConfig{ClientID: testNaverClientID, ClientSecret: "plain"},
			wantErr: ErrNaverConfigInvalidSecret,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.config.Validate(), tt.wantErr)
		})
	}
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

type fakeNaver struct {
	tokenCalls   atomic.Int32
	productCalls atomic.Int32
	// rejectFirst makes the first product call answer 401
	rejectFirst bool
	status      int

	mu       sync.Mutex
	lastBody map[string]any
}

func (f *fakeNaver) body() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func (f *fakeNaver) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == naverTokenPath:
			require.NoError(t, r.ParseForm())
			assert.Equal(t, testNaverClientID, r.PostForm.Get("client_id"))
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "SELF", r.PostForm.Get("type"))
			sign, err := base64.StdEncoding.DecodeString(r.PostForm.Get("client_secret_sign"))
			require.NoError(t, err)
			assert.NoError(t, bcrypt.CompareHashAndPassword(sign,
				[]byte(testNaverClientID+"_"+r.PostForm.Get("timestamp"))))

			n := f.tokenCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "tok-" + string(rune('0'+n)),
				"expires_in":   10800,
				"token_type":   "Bearer",
			})
		case r.URL.Path == "/v2/products/origin-products/1001" && r.Method == http.MethodGet:
			n := f.productCalls.Add(1)
			if f.rejectFirst && n == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if f.status != 0 {
				w.WriteHeader(f.status)
				return
			}
			assert.Contains(t, r.Header.Get("Authorization"), "Bearer tok-")
			writeJSON(w, http.StatusOK, map[string]any{
				"originProduct": map[string]any{
					"statusType":    "SALE",
					"name":          "Green tea",
					"salePrice":     25000,
					"stockQuantity": 42,
				},
			})
		case r.URL.Path == "/v1/products/origin-products/1001/option-stock" && r.Method == http.MethodPut:
			body := map[string]any{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.lastBody = body
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestNaverAdapter(t *testing.T, f *fakeNaver) *NaverAdapter {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	a, err := NewNaverAdapter(&NaverConfig{
		BaseURL:      srv.URL,
		ClientID:     testNaverClientID,
		ClientSecret: testNaverSecret,
		Timeout:      time.Second,
	}, testGuard("naver"), zap.NewNop())
	require.NoError(t, err)
	return a
}

var naverRef = integration.ProductRef{SKU: "TEA-001", ProductID: "1001"}

func TestNewNaverAdapter_InvalidConfig(t *testing.T) {
	_, err := NewNaverAdapter(&NaverConfig{}, nil, nil)
	assert.ErrorIs(t, err, ErrNaverConfigMissingClientID)
}

func TestNaverAdapter_GetInventoryAndPrice(t *testing.T) {
	f := &fakeNaver{}
	a := newTestNaverAdapter(t, f)
	ctx := context.Background()

	assert.Equal(t, integration.PlatformNaver, a.Code())

	qty, err := a.GetInventory(ctx, naverRef)
	require.NoError(t, err)
	assert.Equal(t, 42, qty)

	price, err := a.GetPrice(ctx, naverRef)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25000).Equal(price))

	assert.Equal(t, int32(1), f.tokenCalls.Load(), "token is cached between calls")
}

func TestNaverAdapter_TokenRefreshedBeforeExpiry(t *testing.T) {
	f := &fakeNaver{}
	a := newTestNaverAdapter(t, f)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	_, err := a.GetInventory(context.Background(), naverRef)
	require.NoError(t, err)

	now = now.Add(3*time.Hour - 30*time.Second)
	_, err = a.GetInventory(context.Background(), naverRef)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestNaverAdapter_UnauthorizedDropsToken(t *testing.T) {
	f := &fakeNaver{rejectFirst: true}
	a := newTestNaverAdapter(t, f)

	qty, err := a.GetInventory(context.Background(), naverRef)
	require.NoError(t, err)
	assert.Equal(t, 42, qty)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
	assert.Equal(t, int32(2), f.productCalls.Load())
}

func TestNaverAdapter_Updates(t *testing.T) {
	f := &fakeNaver{}
	a := newTestNaverAdapter(t, f)
	ctx := context.Background()

	require.NoError(t, a.UpdateInventory(ctx, naverRef, 17))
	assert.Equal(t, float64(17), f.body()["stockQuantity"])
	assert.NotContains(t, f.body(), "productSalePrice")

	require.NoError(t, a.UpdatePrice(ctx, naverRef, decimal.RequireFromString("25000.4")))
	assert.Equal(t, map[string]any{"salePrice": float64(25000)}, f.body()["productSalePrice"])
	assert.NotContains(t, f.body(), "stockQuantity")
}

func TestNaverAdapter_InputValidation(t *testing.T) {
	f := &fakeNaver{}
	a := newTestNaverAdapter(t, f)
	ctx := context.Background()

	_, err := a.GetInventory(ctx, integration.ProductRef{SKU: "X"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	err = a.UpdateInventory(ctx, naverRef, -1)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	err = a.UpdatePrice(ctx, naverRef, decimal.Zero)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	assert.Zero(t, f.tokenCalls.Load(), "invalid input never reaches the platform")
}

func TestNaverAdapter_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind shared.ErrorKind
		calls    int32
	}{
		{name: "server error is transient and retried", status: http.StatusBadGateway, wantKind: shared.KindTransientPlatform, calls: 2},
		{name: "rate limited is transient", status: http.StatusTooManyRequests, wantKind: shared.KindTransientPlatform, calls: 2},
		{name: "not found is unresolved mapping", status: http.StatusNotFound, wantKind: shared.KindUnresolvedMapping, calls: 1},
		{name: "bad request is validation", status: http.StatusBadRequest, wantKind: shared.KindValidation, calls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeNaver{status: tt.status}
			a := newTestNaverAdapter(t, f)

			_, err := a.GetInventory(context.Background(), naverRef)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, shared.KindOf(err))
			assert.Equal(t, tt.calls, f.productCalls.Load())
		})
	}
}

func TestNaverAdapter_RateLimitedWrapsSentinel(t *testing.T) {
	f := &fakeNaver{status: http.StatusTooManyRequests}
	a := newTestNaverAdapter(t, f)

	_, err := a.GetPrice(context.Background(), naverRef)
	assert.ErrorIs(t, err, integration.ErrPlatformRateLimited)
	assert.ErrorIs(t, err, shared.ErrTransientPlatform)
}
