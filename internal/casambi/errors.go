package casambi

import (
	"errors"
	"fmt"
)

// Sentinel errors for API failure classes. Use errors.Is to test them;
// the concrete error in the chain is an *APIError carrying the status code.
var (
	// ErrLoginRequired indicates the session is missing or expired (401).
	ErrLoginRequired = errors.New("login required")
	// ErrForbidden indicates the API is not enabled for this key, or a
	// session was requested too soon after a failed attempt (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the requested data does not exist (404).
	ErrNotFound = errors.New("not found")
	// ErrInvalidSession indicates the session id is no longer valid (410).
	ErrInvalidSession = errors.New("invalid session")
	// ErrRateLimited indicates the server quota was exceeded (429).
	ErrRateLimited = errors.New("rate limited")
	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")

	// ErrMaxReconnectsExceeded is returned by Controller.Run when the
	// configured reconnect budget is exhausted.
	ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")
	// ErrWireClosed is returned when sending on a closed or absent wire.
	ErrWireClosed = errors.New("wire closed")
)

// reasonByStatus maps Casambi API status codes to the vendor's documented
// reason strings.
var reasonByStatus = map[int]string{
	200: "request OK",
	400: "bad request, given parameters invalid",
	401: "unauthorized, invalid API key or credentials given",
	403: "API not enabled or session created too soon after failed attempt",
	404: "requested data not found",
	405: "method not allowed",
	410: "invalid session",
	416: "retrieval interval is too long",
	429: "quota limits exceeded",
	500: "server error",
}

// APIError is a non-2xx response from the Casambi Cloud API.
type APIError struct {
	StatusCode int
	URL        string
	Reason     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("casambi api: %s returned %d (%s)", e.URL, e.StatusCode, e.Reason)
}

// Is maps the status code onto the matching sentinel error.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrLoginRequired:
		return e.StatusCode == 401
	case ErrForbidden:
		return e.StatusCode == 403
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrInvalidSession:
		return e.StatusCode == 410
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// newAPIError builds an *APIError with the vendor reason attached.
func newAPIError(status int, url string) *APIError {
	reason, ok := reasonByStatus[status]
	if !ok {
		if status >= 500 {
			reason = reasonByStatus[500]
		} else {
			reason = "unexpected status"
		}
	}
	return &APIError{StatusCode: status, URL: url, Reason: reason}
}

// sessionExpired reports whether err calls for discarding the current
// session and logging in again.
func sessionExpired(err error) bool {
	return errors.Is(err, ErrLoginRequired) || errors.Is(err, ErrInvalidSession)
}
