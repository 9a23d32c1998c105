package asana

import (
	"errors"
	"fmt"
)

// ErrNoCredential indicates no API token is configured. Callers should
// prompt for authentication instead of retrying.
var ErrNoCredential = errors.New("asana: no credential configured")

// APIError represents a non-2xx response from the Asana API. Asana
// returns a JSON body with an "errors" array of messages.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the first error description from the response body,
	// or the raw body when it is not the expected shape.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("asana: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

// IsAuthError reports whether err is a 401 or 403 response, meaning
// the credential is invalid or lacks access.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
