package engine

import (
	"errors"
	"fmt"

	"github.com/tapemachine/bfc/internal/ir"
)

// RuntimeError represents an error detected during program execution.
//
// Runtime errors include:
//   - Tape range: the pointer or a cell access left the tape (only
//     reported when bounds checking is enabled)
//   - Read failed: the input stream returned an error other than EOF
//   - Write failed: the output stream rejected a byte or a flush
//
// RuntimeError carries the source position of the faulting op so the
// failure can be traced back to the program text.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Pos is the source position of the op that failed.
	Pos ir.Position

	// Err is the underlying I/O error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTapeRange indicates an access outside the tape.
	ErrCodeTapeRange RuntimeErrorCode = "TAPE_RANGE"

	// ErrCodeReadFailed indicates the input stream failed.
	ErrCodeReadFailed RuntimeErrorCode = "READ_FAILED"

	// ErrCodeWriteFailed indicates the output stream failed.
	ErrCodeWriteFailed RuntimeErrorCode = "WRITE_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying I/O error, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsTapeRangeError returns true if the error is a tape range violation.
// Uses errors.As to handle wrapped errors.
func IsTapeRangeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeTapeRange
}

// NewTapeRangeError creates a RuntimeError for an out-of-range access.
func NewTapeRangeError(pos ir.Position, index, size int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTapeRange,
		Message: fmt.Sprintf("tape index %d outside [0, %d)", index, size),
		Pos:     pos,
	}
}

// NewReadError creates a RuntimeError for a failed input read.
func NewReadError(pos ir.Position, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReadFailed,
		Message: "reading input",
		Pos:     pos,
		Err:     err,
	}
}

// NewWriteError creates a RuntimeError for a failed output write.
func NewWriteError(pos ir.Position, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeWriteFailed,
		Message: "writing output",
		Pos:     pos,
		Err:     err,
	}
}
