package conform

import (
	"errors"
	"fmt"

	"github.com/zenc-lang/zc-conform/exitcodes"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include configuration errors, log write failures, refused purges, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports that at least one test failed (exit code 1)
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps an error returned by a command onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err):
		return exitcodes.RuntimeErr
	default:
		// Test failures, a missing compiler and anything unclassified
		return exitcodes.TestFailure
	}
}
