package integration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManualExchangeRate(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	r, err := NewManualExchangeRate(decimal.RequireFromString("0.00075"), "bank notice", 7, now)
	require.NoError(t, err)
	assert.True(t, r.IsActive)
	assert.Equal(t, RateSourceManual, r.Source)
	require.NotNil(t, r.ValidUntil)
	assert.Equal(t, now.AddDate(0, 0, 7), *r.ValidUntil)
	assert.True(t, r.IsValidAt(now.Add(6*24*time.Hour)))
	assert.False(t, r.IsValidAt(now.Add(7*24*time.Hour)))
	assert.False(t, r.IsValidAt(now.Add(-time.Second)))

	assert.Equal(t, "15", r.Convert(decimal.NewFromInt(20000)).String())

	_, err = NewManualExchangeRate(decimal.Zero, "x", 7, now)
	assert.ErrorIs(t, err, ErrRateNotPositive)
	_, err = NewManualExchangeRate(decimal.NewFromFloat(0.1), "x", 0, now)
	assert.ErrorIs(t, err, ErrRateInvalidValidity)
	_, err = NewManualExchangeRate(decimal.NewFromFloat(0.1), " ", 1, now)
	assert.ErrorIs(t, err, ErrRateReasonRequired)
}
