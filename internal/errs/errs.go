// Package errs defines the run-level error taxonomy and its exit codes.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Everything a run can fail with wraps one of these.
var (
	ErrPathNotFound  = errors.New("path not found")
	ErrNoFiles       = errors.New("no source files")
	ErrInvalidSource = errors.New("invalid source")
	ErrPersistence   = errors.New("cannot write output")
	ErrConfig        = errors.New("invalid configuration")
	ErrUsage         = errors.New("usage")
)

// Exit codes returned by the command line.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitInvalidSource = 3
	ExitPersistence   = 4
)

// SourceError reports a file the source model provider could not accept.
// Line and Column are 1-based.
type SourceError struct {
	Path   string
	Line   int
	Column int
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match both the cause and ErrInvalidSource.
func (e *SourceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidSource, e.Err}
	}
	return []error{ErrInvalidSource}
}

// NewSourceError creates a SourceError.
func NewSourceError(path string, line, column int, reason string) *SourceError {
	return &SourceError{Path: path, Line: line, Column: column, Reason: reason}
}

// PathError reports a path supplied by the caller that cannot be used.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// NotFound returns a PathError wrapping ErrPathNotFound.
func NotFound(path string) *PathError {
	return &PathError{Path: path, Err: ErrPathNotFound}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrPathNotFound), errors.Is(err, ErrNoFiles),
		errors.Is(err, ErrUsage), errors.Is(err, ErrConfig):
		return ExitUsage
	case errors.Is(err, ErrInvalidSource):
		return ExitInvalidSource
	case errors.Is(err, ErrPersistence):
		return ExitPersistence
	default:
		return ExitFailure
	}
}
