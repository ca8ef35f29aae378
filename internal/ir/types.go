package ir

import "fmt"

// Position locates a token or op in the raw source text.
// Offsets and columns count raw bytes, before non-instruction characters
// are discarded, so diagnostics point into the file the user wrote.
type Position struct {
	Offset int `json:"offset"` // 0-based byte offset
	Line   int `json:"line"`   // 1-based
	Col    int `json:"col"`    // 1-based
}

// String renders the position as "line:col".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// OpKind identifies an IR op variant.
type OpKind uint8

const (
	// OpAdd adds Arg to the current cell, modulo 256.
	OpAdd OpKind = iota + 1
	// OpMove moves the data pointer by Arg cells.
	OpMove
	// OpInput reads one byte into the current cell.
	// At end of stream the cell is set to 255.
	OpInput
	// OpOutput writes the current cell's byte to the output stream.
	OpOutput
	// OpClear sets the current cell to 0 in one step.
	OpClear
	// OpScan moves the pointer by Arg cells at a time until the cell
	// under it is 0.
	OpScan
	// OpMulCopy adds Factors multiples of the current cell's pre-loop
	// value at their offsets, then zeroes the current cell.
	OpMulCopy
	// OpLoop executes Body while the current cell is nonzero.
	OpLoop
	// OpSetPtr repositions the pointer Arg cells from the origin.
	// Produced only by partial evaluation.
	OpSetPtr
	// OpSetCell stores the byte Arg at Off cells from the origin.
	// Produced only by partial evaluation.
	OpSetCell
	// OpEmit writes the constant byte Arg to the output stream.
	// Produced only by partial evaluation.
	OpEmit
)

var opKindNames = map[OpKind]string{
	OpAdd:     "add",
	OpMove:    "move",
	OpInput:   "input",
	OpOutput:  "output",
	OpClear:   "clear",
	OpScan:    "scan",
	OpMulCopy: "mulcopy",
	OpLoop:    "loop",
	OpSetPtr:  "setptr",
	OpSetCell: "setcell",
	OpEmit:    "emit",
}

// String returns the op mnemonic.
func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("opkind(%d)", uint8(k))
}

// MarshalText encodes the kind as its mnemonic for JSON output.
func (k OpKind) MarshalText() ([]byte, error) {
	name, ok := opKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown op kind %d", uint8(k))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a mnemonic back into an OpKind.
func (k *OpKind) UnmarshalText(text []byte) error {
	for kind, name := range opKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown op mnemonic %q", string(text))
}

// Factor is one (offset, multiplier) pair of a mul/copy loop: the cell at
// Offset from the pointer receives Multiplier times the origin cell's
// pre-loop value.
type Factor struct {
	Offset     int64 `json:"offset"`
	Multiplier int64 `json:"multiplier"`
}

// Op is one arena slot. Loops reference their body ops through Body, so
// arbitrarily nested programs need no recursive structures; every op is
// addressable by its arena index, which is also its profile counter slot.
type Op struct {
	Kind    OpKind   `json:"kind"`
	Arg     int64    `json:"arg,omitempty"`
	Off     int64    `json:"off,omitempty"`
	Factors []Factor `json:"factors,omitempty"`
	Body    []uint32 `json:"body,omitempty"`
	Pos     Position `json:"pos"`
}

// Program is the optimized op arena. Root lists the top-level op indices
// in execution order. A Program is immutable once built.
type Program struct {
	Ops  []Op     `json:"ops"`
	Root []uint32 `json:"root"`
}

// Len returns the number of ops in the arena.
func (p *Program) Len() int {
	return len(p.Ops)
}
