package platform

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/YKLee98/naver-sub003/internal/domain/integration"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
)

// maxErrorBodyLen bounds how much of an error response ends up in messages
const maxErrorBodyLen = 256

// classify maps a resty outcome onto the shared error taxonomy.
// A nil return means the response is a 2xx.
func classify(code integration.PlatformCode, ref string, resp *resty.Response, err error) error {
	if err != nil {
		return shared.NewTransientPlatformError(code.String(), fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err))
	}
	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return shared.NewTransientPlatformError(code.String(), fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRateLimited, status))
	case status >= 500:
		return shared.NewTransientPlatformError(code.String(), fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// Credentials may have been rotated or a token expired, worth one more attempt
		return shared.NewTransientPlatformError(code.String(), fmt.Errorf("%w: HTTP %d", integration.ErrPlatformAuthFailed, status))
	case status == http.StatusNotFound:
		return shared.NewUnresolvedMappingError(ref)
	default:
		return shared.NewValidationError(fmt.Sprintf("%s rejected request: HTTP %d: %s", code, status, truncate(resp.String())))
	}
}

func truncate(s string) string {
	if len(s) <= maxErrorBodyLen {
		return s
	}
	return s[:maxErrorBodyLen] + "..."
}
