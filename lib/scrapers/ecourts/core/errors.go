package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the portal still reports a session
	// timeout after the session was refreshed once.
	ErrSessionExpired = errors.New("ecourts: session expired")
	// ErrNotInitialized is returned by operations that need a session when
	// the session could not be established.
	ErrNotInitialized = errors.New("ecourts: failed to initialize session")
)

// TransportError is a request that did not produce a 200 response, either
// because it never completed (Err is set) or because the portal answered
// with another status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ecourts: request failed: %s", e.Err.Error())
	}
	return fmt.Sprintf("ecourts: HTTP %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message is the short form surfaced to callers, "HTTP <code>" for status
// failures.
func (e *TransportError) Message() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return "Request failed"
}
