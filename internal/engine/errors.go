package engine

import (
	"errors"
	"fmt"
)

// NavigationError represents an error detected while proposing or
// committing a transition.
//
// Navigation errors include:
//   - Out of range: a jump whose target index falls outside the stack
//   - Settled: a second decision on a transition that was already decided
//   - Vetoed: waiting on a transition a listener rejected
//   - Invalid state: construction from an unusable initial state
//   - Save failed: the save callback failed after a snapshot was applied
type NavigationError struct {
	// Code identifies the error category.
	Code NavigationErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the current index when the error was raised.
	Index int

	// Delta is the requested jump delta (out-of-range errors only).
	Delta int

	// Length is the entry count when the error was raised.
	Length int

	// Err is the underlying cause (save errors only).
	Err error
}

// NavigationErrorCode categorizes navigation errors.
type NavigationErrorCode string

const (
	// ErrCodeOutOfRange indicates index+delta falls outside [0, length).
	ErrCodeOutOfRange NavigationErrorCode = "OUT_OF_RANGE"

	// ErrCodeSettled indicates the transition was already committed or vetoed.
	ErrCodeSettled NavigationErrorCode = "SETTLED"

	// ErrCodeVetoed indicates a listener rejected the transition.
	ErrCodeVetoed NavigationErrorCode = "VETOED"

	// ErrCodeInvalidState indicates the initial state violates the store invariants.
	ErrCodeInvalidState NavigationErrorCode = "INVALID_STATE"

	// ErrCodeSaveFailed indicates the save callback failed. The snapshot it
	// was saving stays applied.
	ErrCodeSaveFailed NavigationErrorCode = "SAVE_FAILED"
)

// Error implements the error interface.
func (e *NavigationError) Error() string {
	if e.Code == ErrCodeOutOfRange {
		return fmt.Sprintf("%s: %s (index=%d, delta=%d, length=%d)", e.Code, e.Message, e.Index, e.Delta, e.Length)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *NavigationError) Unwrap() error {
	return e.Err
}

// IsRangeError returns true if the error is an out-of-range navigation.
// Uses errors.As to handle wrapped errors.
func IsRangeError(err error) bool {
	return hasCode(err, ErrCodeOutOfRange)
}

// IsSettledError returns true if the error reports a second decision on a
// transition.
func IsSettledError(err error) bool {
	return hasCode(err, ErrCodeSettled)
}

// IsVetoedError returns true if the error reports a vetoed transition.
func IsVetoedError(err error) bool {
	return hasCode(err, ErrCodeVetoed)
}

// IsSaveError returns true if the error reports a failed save of an
// applied snapshot.
func IsSaveError(err error) bool {
	return hasCode(err, ErrCodeSaveFailed)
}

func hasCode(err error, code NavigationErrorCode) bool {
	var ne *NavigationError
	if errors.As(err, &ne) {
		return ne.Code == code
	}
	return false
}

// NewRangeError creates a NavigationError for an out-of-range jump.
func NewRangeError(index, delta, length int) *NavigationError {
	return &NavigationError{
		Code:    ErrCodeOutOfRange,
		Message: fmt.Sprintf("cannot jump to index %d", index+delta),
		Index:   index,
		Delta:   delta,
		Length:  length,
	}
}

// NewSettledError creates a NavigationError for a transition decided twice.
func NewSettledError(outcome Outcome) *NavigationError {
	return &NavigationError{
		Code:    ErrCodeSettled,
		Message: fmt.Sprintf("transition already %s", outcome),
	}
}

// NewVetoedError creates a NavigationError for a rejected transition.
func NewVetoedError(reason string) *NavigationError {
	msg := "transition vetoed"
	if reason != "" {
		msg += ": " + reason
	}
	return &NavigationError{Code: ErrCodeVetoed, Message: msg}
}

// NewSaveError creates a NavigationError for a failed save of seq.
func NewSaveError(seq int64, err error) *NavigationError {
	return &NavigationError{
		Code:    ErrCodeSaveFailed,
		Message: fmt.Sprintf("save seq %d", seq),
		Err:     err,
	}
}
