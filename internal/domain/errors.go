package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBlankQuery signals an empty or whitespace-only search query.
	ErrBlankQuery = errors.New("query is blank")
	// ErrSearchInFlight signals that a search is already running for this caller.
	ErrSearchInFlight = errors.New("search already in flight")

	// ErrCancelled signals an explicit caller abort.
	ErrCancelled = errors.New("request cancelled")
	// ErrSuperseded signals that a newer request replaced this one.
	ErrSuperseded = errors.New("request superseded")
	// ErrTimedOut signals that the request deadline fired.
	ErrTimedOut = errors.New("request timed out")

	// ErrTransportFailed signals a network, DNS, or connection failure.
	ErrTransportFailed = errors.New("transport failed")
	// ErrBackendRejected signals a non-2xx status or an unsuccessful backend response.
	ErrBackendRejected = errors.New("backend rejected request")
	// ErrMalformedFrame signals a stream frame that is not a valid JSON event.
	ErrMalformedFrame = errors.New("malformed stream frame")
)

// HTTPError wraps ErrBackendRejected with the upstream status and body text.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (e *HTTPError) Unwrap() error { return ErrBackendRejected }

// NewHTTPError creates a backend rejection error for a non-2xx response.
func NewHTTPError(status int, body string) error {
	return &HTTPError{Status: status, Body: body}
}

// IsCancellation reports whether err stems from supersession, manual abort, or a deadline.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrSuperseded) || errors.Is(err, ErrTimedOut)
}
