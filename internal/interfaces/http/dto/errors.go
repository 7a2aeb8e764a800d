package dto

import (
	"net/http"

	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// Error codes
const (
	ErrCodeInternal              = "ERR_INTERNAL"
	ErrCodeValidation            = "ERR_VALIDATION"
	ErrCodeBadRequest            = "ERR_BAD_REQUEST"
	ErrCodeNotFound              = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists         = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeUnauthorized          = "ERR_UNAUTHORIZED"
	ErrCodeSignatureVerification = "ERR_SIGNATURE_VERIFICATION"
	ErrCodeUnresolvedMapping     = "ERR_UNRESOLVED_MAPPING"
	ErrCodePlatformUnavailable   = "ERR_PLATFORM_UNAVAILABLE"
	ErrCodeSetup                 = "ERR_SETUP"
	ErrCodeRateLimited           = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge       = "ERR_REQUEST_TOO_LARGE"
)

// kindCodes maps the error taxonomy to response codes and statuses
var kindCodes = map[shared.ErrorKind]struct {
	code   string
	status int
}{
	shared.KindValidation:            {ErrCodeValidation, http.StatusBadRequest},
	shared.KindNotFound:              {ErrCodeNotFound, http.StatusNotFound},
	shared.KindInvalidState:          {ErrCodeInvalidState, http.StatusConflict},
	shared.KindSignatureVerification: {ErrCodeSignatureVerification, http.StatusUnauthorized},
	shared.KindUnresolvedMapping:     {ErrCodeUnresolvedMapping, http.StatusUnprocessableEntity},
	shared.KindTransientPlatform:     {ErrCodePlatformUnavailable, http.StatusServiceUnavailable},
	shared.KindFatalSetup:            {ErrCodeSetup, http.StatusInternalServerError},
}

// ErrorFor returns the response code and status for err
func ErrorFor(err error) (code string, status int) {
	if shared.CodeOf(err) == shared.ErrAlreadyExists.Code {
		return ErrCodeAlreadyExists, http.StatusConflict
	}
	if m, ok := kindCodes[shared.KindOf(err)]; ok {
		return m.code, m.status
	}
	return ErrCodeInternal, http.StatusInternalServerError
}
