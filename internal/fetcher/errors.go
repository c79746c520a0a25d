package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDisallowed is returned when robots.txt rules forbid a fetch.
var ErrDisallowed = errors.New("fetch disallowed by robots.txt")

// StatusError reports a response with an error status code.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err carries not-found semantics (404 or 410).
func IsNotFound(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
}

// isRetryable reports whether a failed attempt may succeed when repeated.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDisallowed) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	// context expiry is final; other transport errors are transient
	return !errors.Is(err, errContextDone)
}
