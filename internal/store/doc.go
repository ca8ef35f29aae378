// Package store provides SQLite-backed storage for the run history.
//
// The store keeps an append-only log with:
//   - Runs: one record per recorded execution, including the program
//     source, the compile options, the captured input bytes, and a
//     digest of the produced output
//   - Op Counts: the per-op execution profile of a run, when the run
//     was profiled
//
// A recorded run holds everything replay needs: re-lexing the stored
// source with the stored options and feeding back the captured input
// must reproduce an output with the stored hash, or the toolchain has
// changed behavior. Version stamps on each run (IR and tool) identify
// which toolchain wrote it.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: op_counts rows cannot outlive their run
//
// Run IDs are UUIDv7, so lexical order within a single machine roughly
// tracks creation order; history listings still order by created_at.
// Program and output hashes come from internal/ir/hash.go, SHA-256 with
// domain separation.
package store
