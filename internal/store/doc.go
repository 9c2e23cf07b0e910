// Package store provides a SQLite archive for completed sequences.
//
// The archive is a downstream consumer of recorder output and a source for
// players; the engine itself keeps nothing across restarts. Each sequence
// is stored under its name with its elements in capture order:
//
//   - sequences: name, element count, duration, revision
//   - elements: (sequence_name, position) -> delay_ms, data
//
// Saving a sequence under an existing name replaces its elements and bumps
// the revision.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity (element cascade)
//
// All reads order elements by position so a loaded sequence replays in
// exactly the order it was saved.
package store
