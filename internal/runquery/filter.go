package runquery

import "time"

// Filter selects a subset of recorded runs.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and keeps
// the type switch in the SQL backend exhaustive.
//
// Filter terms:
//   - ProgramIs: program-hash equality
//   - SourceIs: source-path equality
//   - Since / Until: creation-time bounds (inclusive)
//   - MinSteps: step-count floor
//   - All: conjunction of terms
//
// Every term maps to one WHERE fragment; the backend never interpolates
// values, only placeholders.
type Filter interface {
	filterTerm() // Marker method - seals interface to this package
}

// ProgramIs matches runs of one program, identified by the
// domain-separated hash of its canonical instruction text. Layout and
// comments do not affect the hash, so recordings of the same program
// from different files land under the same value.
//
// Translates to SQL:
//
//	program_hash = ?
type ProgramIs struct {
	// Hash is the hex-encoded program hash, as printed by history
	// listings in JSON format.
	Hash string
}

func (ProgramIs) filterTerm() {}

// SourceIs matches runs recorded from one source path, exactly as the
// path was given on the command line ("-" for stdin).
//
// Translates to SQL:
//
//	source_path = ?
type SourceIs struct {
	Path string
}

func (SourceIs) filterTerm() {}

// Since matches runs created at or after the cutoff.
//
// Creation times are stored as RFC 3339 text with fractional seconds,
// so the backend compares through julianday() rather than as strings:
//
//	julianday(created_at) >= julianday(?)
type Since struct {
	Cutoff time.Time
}

func (Since) filterTerm() {}

// Until matches runs created at or before the cutoff.
//
// Translates to SQL:
//
//	julianday(created_at) <= julianday(?)
type Until struct {
	Cutoff time.Time
}

func (Until) filterTerm() {}

// MinSteps matches runs that executed at least Steps ops. Useful for
// skipping trivial recordings when replaying a large history.
//
// Translates to SQL:
//
//	steps >= ?
type MinSteps struct {
	Steps uint64
}

func (MinSteps) filterTerm() {}

// All matches runs satisfying every term. An empty All matches every
// run (vacuous truth), which is how an unfiltered listing is spelled.
//
// Translates to SQL:
//
//	<term1> AND <term2> AND ... AND <termN>
type All struct {
	Filters []Filter
}

func (All) filterTerm() {}
