package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewValidationError("sku is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrTransientPlatform)

	wrapped := fmt.Errorf("adjust: %w", NewUnresolvedMappingError("SKU-1"))
	assert.ErrorIs(t, wrapped, ErrUnresolvedMapping)
	assert.Equal(t, KindUnresolvedMapping, KindOf(wrapped))
	assert.Equal(t, "UNRESOLVED_MAPPING", CodeOf(wrapped))
}

func TestDomainError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientPlatformError("shopify", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "shopify platform call failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("x"), KindInternal},
		{"deadline", context.DeadlineExceeded, KindTransientPlatform},
		{"field error", NewFieldError("INVALID_SKU", "bad"), KindValidation},
		{"fatal", NewFatalSetupError("no mappings", nil), KindFatalSetup},
		{"invalid state", NewInvalidStateError("terminal"), KindInvalidState},
		{"not found sentinel", ErrNotFound, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestCodeOf_Default(t *testing.T) {
	assert.Equal(t, "INTERNAL_ERROR", CodeOf(errors.New("x")))
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, Policy{Retry: true, ItemFailure: true}, PolicyFor(NewTransientPlatformError("naver", nil)))
	assert.Equal(t, Policy{Reject: true}, PolicyFor(ErrSignatureVerification))
	assert.Equal(t, Policy{JobFailure: true}, PolicyFor(NewFatalSetupError("x", nil)))
	assert.Equal(t, Policy{ItemFailure: true}, PolicyFor(NewUnresolvedMappingError("v")))
	assert.Equal(t, Policy{}, PolicyFor(nil))

	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(NewValidationError("x")))
	assert.True(t, IsFatal(NewFatalSetupError("x", nil)))
	assert.False(t, IsFatal(errors.New("x")))
}

func TestFilterOffset(t *testing.T) {
	f := DefaultFilter()
	assert.Equal(t, 0, f.Offset())
	f.Page = 3
	assert.Equal(t, 40, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
}
