// Package audio defines the contract of the native capture backend.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/lucasmsqt/StreamVox/internal/device"
)

// ErrBusy is returned by backends asked to start while already capturing.
var ErrBusy = errors.New("capture already running")

// Client is the command interface of a capture backend. Calls are
// request/response and the backend does not deduplicate them.
type Client interface {
	ListDevices(ctx context.Context) (inputs, outputs []device.Device, err error)
	StartCapture(ctx context.Context, inputID, outputID string) error
	StopCapture(ctx context.Context) error
	Close() error
}

// StartError reports a backend refusal to start capturing.
type StartError struct {
	Input  string
	Output string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start capture %s -> %s: %v", e.Input, e.Output, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// StopError reports that the backend could not confirm teardown. The
// capture resource is in an unknown state until a stop succeeds.
type StopError struct {
	Err error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("stop capture: %v", e.Err)
}

func (e *StopError) Unwrap() error {
	return e.Err
}

// AsStartError wraps err into a StartError unless it already is one.
func AsStartError(err error, input, output string) *StartError {
	var se *StartError
	if errors.As(err, &se) {
		return se
	}
	return &StartError{Input: input, Output: output, Err: err}
}

// AsStopError wraps err into a StopError unless it already is one.
func AsStopError(err error) *StopError {
	var se *StopError
	if errors.As(err, &se) {
		return se
	}
	return &StopError{Err: err}
}
