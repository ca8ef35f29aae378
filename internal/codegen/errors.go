package codegen

import (
	"errors"
	"fmt"

	"github.com/tapemachine/bfc/internal/ir"
)

// Error reports an op the backend cannot translate.
//
// The compiler only produces kinds the emitter handles, so this
// surfaces for hand-assembled programs or when a new op kind lands
// before the backend learns it. Generate returns the first one found.
type Error struct {
	// Kind is the op kind with no translation.
	Kind ir.OpKind

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("codegen: %s", e.Message)
}

// AsError returns the codegen error inside err, if any.
// Uses errors.As to handle wrapped errors.
func AsError(err error) (*Error, bool) {
	var ce *Error
	ok := errors.As(err, &ce)
	return ce, ok
}

// newUnsupportedOpError creates an Error for an op kind the emitter has
// no template for.
func newUnsupportedOpError(kind ir.OpKind) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("no x86-64 template for op kind %s", kind),
	}
}
