// Package runquery models typed filters over the run history.
//
// The history commands accept several narrowing flags (program hash,
// source path, time window, step floor). Rather than each command
// assembling WHERE strings by hand, the flags build a Filter value here
// and the runsql package compiles it to parameterized SQL. The filter
// layer is the boundary: commands know terms, the backend knows SQL.
//
// SEALED INTERFACE:
//
// Filter is sealed with the marker method pattern - only types in this
// package implement it. The SQL backend type-switches over the terms,
// and sealing means that switch is exhaustive by construction:
//
//	switch term := f.(type) {
//	case runquery.ProgramIs:
//	    // program_hash = ?
//	case runquery.All:
//	    // AND over the sub-terms
//	...
//	}
//
// TERMS:
//
//   - ProgramIs(hash)  - runs of one program, by canonical-text hash
//   - SourceIs(path)   - runs recorded from one source path
//   - Since(t)         - created at or after t (inclusive)
//   - Until(t)         - created at or before t (inclusive)
//   - MinSteps(n)      - at least n executed ops
//   - All(terms...)    - conjunction; empty All matches everything
//
// There is deliberately no Or and no negation: the history flags are
// conjunctive, and every term must stay compilable to one indexed
// WHERE fragment.
//
// VALIDATION:
//
// Validate flags filters that execute fine but cannot match anything
// (empty hash, zero cutoff, Since after Until). Warnings are advisory;
// the CLI prints them on stderr and runs the query anyway.
package runquery
