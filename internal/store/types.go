package store

import "time"

// Run is one recorded execution of a program.
//
// A run captures everything replay needs to re-execute the program and
// check the result: the source text, the compile options (as JSON), and
// the exact input bytes consumed. The output itself is not stored; its
// hash and length are enough to verify a replay byte for byte.
type Run struct {
	// ID is the run's UUIDv7 identifier.
	ID string

	// ProgramHash is the domain-separated hash of the canonical source.
	ProgramHash string

	// SourcePath is where the source was loaded from, or "-" for stdin.
	SourcePath string

	// Source is the full program text as loaded.
	Source string

	// Options is the compiler option set as JSON.
	Options string

	// Input holds the input bytes the program consumed.
	Input []byte

	// OutputHash is the domain-separated hash of the output bytes.
	OutputHash string

	// OutputBytes is the output length.
	OutputBytes int64

	// Steps is the number of op executions.
	Steps uint64

	// DurationNS is the wall-clock run time in nanoseconds.
	DurationNS int64

	// IRVersion and ToolVersion stamp the toolchain that wrote the run.
	IRVersion   string
	ToolVersion string

	// CreatedAt is when the run was recorded, in UTC.
	CreatedAt time.Time
}

// OpCount is one row of a recorded execution profile.
type OpCount struct {
	RunID    string
	OpIndex  uint32
	Mnemonic string
	Executed uint64
}
