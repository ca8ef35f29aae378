// Package engine implements the tape-machine interpreter.
//
// The engine walks a compiled arena program against a flat byte tape,
// reading and writing cells through a single data pointer. Execution is
// strictly single-threaded: one Run loop, one tape, no concurrency.
//
// ARCHITECTURE:
//
// Explicit Frame Stack:
// Loop nesting is tracked with an explicit stack of frames rather than Go
// recursion, so deeply nested programs cannot exhaust the goroutine stack.
// Each frame holds a block of arena indices and a cursor; loop frames
// re-test their guard cell when the cursor reaches the end of the block.
//
// Execution Flow:
//  1. Run() pushes the program's root block as the bottom frame
//  2. The loop dispatches on the op kind at the cursor
//  3. Specialized ops (Clear, Scan, MulCopy) execute as single steps
//  4. Generic loops push a frame when the guard cell is nonzero
//  5. Output is buffered and flushed before every read and at exit
//
// The tape is a fixed-size byte slice with the pointer starting at the
// midpoint, leaving equal headroom in both directions. Pointer movement is
// not range-checked by default; programs that escape the tape panic unless
// bounds checking is enabled with WithBoundsChecks, which turns the escape
// into a structured RuntimeError instead.
//
// DETERMINISM:
//
// Given the same program and the same input bytes, Run produces identical
// output bytes, an identical step count, and identical profile counts.
// Wall-clock duration is the only nondeterministic result field, and tests
// pin it down by injecting a mock clock.
package engine
