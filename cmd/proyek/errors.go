package main

import (
	"errors"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the exit code for a failed command. reported is set when
// the message already reached the user through the notification sink.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// reportedError wraps an editor failure whose text the sink has already
// printed. The exit code follows classify, so a failed save still exits 2.
func reportedError(err error) error {
	return &exitError{code: exitCode(err), err: err, reported: true}
}

// classify picks the exit code for an error coming out of the storage layer:
// validation and lookup failures are the user's, everything else is ours.
func classify(err error) error {
	return &exitError{code: exitCode(err), err: err}
}

var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidFilter,
	types.ErrInvalidName,
	types.ErrInvalidWeight,
	types.ErrWeightExceeded,
	types.ErrOrdinalOutOfRange,
	types.ErrInvalidStatus,
	types.ErrInvalidDateRange,
	types.ErrInvalidCategory,
	types.ErrInvalidStageRef,
	types.ErrStageNotFound,
	types.ErrInvalidAmount,
}

func exitCode(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
