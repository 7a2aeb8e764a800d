package shared

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the purpose of deciding how callers react to it
type ErrorKind string

const (
	KindValidation            ErrorKind = "VALIDATION"
	KindTransientPlatform     ErrorKind = "TRANSIENT_PLATFORM"
	KindSignatureVerification ErrorKind = "SIGNATURE_VERIFICATION"
	KindUnresolvedMapping     ErrorKind = "UNRESOLVED_MAPPING"
	KindFatalSetup            ErrorKind = "FATAL_SETUP"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindInvalidState          ErrorKind = "INVALID_STATE"
	KindInternal              ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"-"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code, so sentinels work with errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindInternal,
	}
}

func newKindError(kind ErrorKind, code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound      = newKindError(KindNotFound, "NOT_FOUND", "Resource not found", nil)
	ErrAlreadyExists = newKindError(KindValidation, "ALREADY_EXISTS", "Resource already exists", nil)
	ErrInvalidInput  = newKindError(KindValidation, "INVALID_INPUT", "Invalid input provided", nil)
	ErrInvalidState  = newKindError(KindInvalidState, "INVALID_STATE", "Operation not allowed in current state", nil)

	ErrValidation            = newKindError(KindValidation, "VALIDATION_ERROR", "Validation failed", nil)
	ErrTransientPlatform     = newKindError(KindTransientPlatform, "TRANSIENT_PLATFORM_ERROR", "Platform temporarily unavailable", nil)
	ErrSignatureVerification = newKindError(KindSignatureVerification, "SIGNATURE_VERIFICATION_FAILED", "Webhook signature verification failed", nil)
	ErrUnresolvedMapping     = newKindError(KindUnresolvedMapping, "UNRESOLVED_MAPPING", "No mapping for referenced product", nil)
	ErrFatalSetup            = newKindError(KindFatalSetup, "FATAL_SETUP", "Job setup failed", nil)
)

// NewValidationError reports bad input. Never retried.
func NewValidationError(message string) *DomainError {
	return newKindError(KindValidation, ErrValidation.Code, message, nil)
}

// NewFieldError reports bad input under a specific code
func NewFieldError(code, message string) *DomainError {
	return newKindError(KindValidation, code, message, nil)
}

// NewTransientPlatformError wraps a network, timeout or 5xx-class failure from an external catalog
func NewTransientPlatformError(platform string, cause error) *DomainError {
	return newKindError(KindTransientPlatform, ErrTransientPlatform.Code,
		fmt.Sprintf("%s platform call failed", platform), cause)
}

// NewUnavailableError reports local capacity exhaustion, such as a full work queue.
// It is transient: the caller may try again later.
func NewUnavailableError(message string, cause error) *DomainError {
	return newKindError(KindTransientPlatform, "UNAVAILABLE", message, cause)
}

// NewUnresolvedMappingError reports a SKU or variant reference with no known mapping
func NewUnresolvedMappingError(ref string) *DomainError {
	return newKindError(KindUnresolvedMapping, ErrUnresolvedMapping.Code,
		fmt.Sprintf("no mapping found for %q", ref), nil)
}

// NewFatalSetupError aborts a whole job
func NewFatalSetupError(message string, cause error) *DomainError {
	return newKindError(KindFatalSetup, ErrFatalSetup.Code, message, cause)
}

// NewInvalidStateError reports a forbidden state transition
func NewInvalidStateError(message string) *DomainError {
	return newKindError(KindInvalidState, ErrInvalidState.Code, message, nil)
}

// KindOf returns the taxonomy kind of err. Context deadline errors count as transient.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransientPlatform
	}
	return KindInternal
}

// CodeOf returns the DomainError code of err, or INTERNAL_ERROR
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}
