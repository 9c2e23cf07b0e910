// Package engine implements the two state machines of the sequencer and
// the registry that addresses loaded sequences by name.
//
// ARCHITECTURE:
//
// Recorder:
//
//	Idle -> Armed -> Recording -> Idle
//	Idle -> Recording -> Idle            (StartImmediately)
//
// An armed recorder starts its clock on the first captured event, so the
// first element always has delay 0. The session ends on Stop, on the
// element limit or on the duration alarm; a non-empty session emits its
// snapshot exactly once.
//
// Player:
//
//	Idle -> Playing -> Idle
//
// Replay is level-triggered: a goroutine wakes every tick, compares the
// elapsed time since play start with the pending element's delay and emits
// every element that is due. Elements are never emitted early and never out
// of order; lateness is bounded by one tick.
//
// Registry:
// Holds one Player per loaded sequence and resolves Selectors (all, one,
// many names) for play, stop and remove. Missing names are reported per
// name; the rest of the batch still runs.
//
// CONCURRENCY:
//
// Each Player and the Recorder guard their state with a mutex, so timer
// callbacks serialize with commands. Stop cancels the tick goroutine and
// joins it; after Stop returns no further emission happens. The duration
// alarm checks the session generation it was armed for.
//
// EmitFunc and StatusFunc run with the owner's lock held and must not call
// back into the owner. The recorder output runs after the lock is released.
package engine
