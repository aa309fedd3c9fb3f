// Package engine drives the repository question-answering agent.
// This file contains the error kinds a step can report.

package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingName      = errors.New("malformed function call: missing name")
	ErrInvalidArguments = errors.New("malformed function call: invalid arguments")
	ErrUnknownAction    = errors.New("unknown action")
	ErrNothingToTrim    = errors.New("could not find message to trim")
	ErrMissingTarget    = errors.New("query does not have target")
	ErrOutboxClosed     = errors.New("exchange outbox was closed")
	ErrUnknownAlias     = errors.New("unknown path alias")
)

// TimeoutError reports that a caller-imposed deadline expired around a step.
// The engine never raises it on its own; see StepWithTimeout.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step timed out after %s", e.Duration)
}

// ProcessingError is every other step failure. Op names the stage that failed.
type ProcessingError struct {
	Err error
	Op  string // "query", "path", "code", "proc", "answer", "history", "trim", "model", "decode", "publish"
}

func (e *ProcessingError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("processing failed: %v", e.Err)
	}
	return fmt.Sprintf("[op=%s] %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// wrapProcessing wraps err as a ProcessingError unless it already is one.
func wrapProcessing(err error, op string) error {
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return err
	}
	return &ProcessingError{Err: err, Op: op}
}

// IsTimeout checks if an error is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsProcessing checks if an error is a ProcessingError.
func IsProcessing(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}

// TrimError indicates that every redactable message was hidden and the
// transcript still does not leave enough room for the reply.
type TrimError struct {
	Model     string
	Remaining int
	Headroom  int
	Hidden    int
}

func (e *TrimError) Error() string {
	return fmt.Sprintf("%v: %d tokens left for %s, need %d (after hiding %d messages)",
		ErrNothingToTrim, e.Remaining, e.Model, e.Headroom, e.Hidden)
}

func (e *TrimError) Unwrap() error {
	return ErrNothingToTrim
}

// ArgsValidationError indicates that function arguments did not match the
// schema for the named action.
type ArgsValidationError struct {
	Function string
	Errors   []string
}

func (e *ArgsValidationError) Error() string {
	return fmt.Sprintf("%v: %s arguments invalid: %s", ErrUnknownAction, e.Function, strings.Join(e.Errors, "; "))
}

func (e *ArgsValidationError) Unwrap() error {
	return ErrUnknownAction
}
