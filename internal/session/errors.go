package session

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when the controller was torn down before a
	// response arrived. The response is not applied.
	ErrClosed = errors.New("session controller closed")

	// ErrBusy is returned for operations refused while a capture start
	// is in flight.
	ErrBusy = errors.New("session is starting")
)

// ValidationError rejects a capture request before it reaches the backend.
type ValidationError struct {
	Field  string // "phase", "input" or "output"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid capture request: %s", e.Reason)
}
