// Package ir provides the op arena shared by the optimizer, the
// interpreter, and the code generator, plus the disassembler and the
// content-addressed hashing used by the run-history store.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Loop bodies are arena indices (Op.Body), never recursive pointers
//   - A Program is immutable once built; the interpreter and the code
//     generator share it read-only
//   - Cell arithmetic wraps modulo 256; pointer arithmetic does not
//   - All JSON tags use snake_case
package ir
