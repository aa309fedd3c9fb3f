package providers

import (
	"fmt"
	"net/http"
	"strings"
)

// ProviderError is a failed call to a model API. Status is 0 when the
// response code could not be determined.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, http.StatusText(e.Status), e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func wrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Status: statusFromError(err), Err: err}
}

// statusFromError extracts an HTTP status code from an SDK error message.
// The SDKs format codes into their messages ("status code: 429", "429 Too
// Many Requests"), so we look for the ones that matter to a caller.
func statusFromError(err error) int {
	errStr := err.Error()
	for _, code := range []int{
		http.StatusTooManyRequests,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusPaymentRequired,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	} {
		if strings.Contains(errStr, fmt.Sprint(code)) {
			return code
		}
	}
	return 0
}
