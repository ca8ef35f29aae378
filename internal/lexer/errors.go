package lexer

import (
	"errors"
	"fmt"

	"github.com/tapemachine/bfc/internal/ir"
)

// ErrCodeUnbalancedLoop is the stable code for unmatched-bracket errors.
const ErrCodeUnbalancedLoop = "E_UNBALANCED_LOOP"

// UnbalancedLoopError reports an unmatched loop bracket with its source
// position. It is fatal: the pipeline aborts before any optimization or
// execution, and no partial output is produced.
type UnbalancedLoopError struct {
	Bracket byte // '[' or ']'
	Pos     ir.Position
}

// Error implements the error interface.
func (e *UnbalancedLoopError) Error() string {
	if e.Bracket == '[' {
		return fmt.Sprintf("unmatched '[' at %s: loop is never closed", e.Pos)
	}
	return fmt.Sprintf("unmatched ']' at %s: no open loop to close", e.Pos)
}

// Code returns the stable error code for structured CLI output.
func (e *UnbalancedLoopError) Code() string {
	return ErrCodeUnbalancedLoop
}

// AsUnbalancedLoop extracts an UnbalancedLoopError from an error chain.
func AsUnbalancedLoop(err error) (*UnbalancedLoopError, bool) {
	var ue *UnbalancedLoopError
	ok := errors.As(err, &ue)
	return ue, ok
}
