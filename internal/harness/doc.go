// Package harness runs scripted scenarios against a player or recorder
// node and checks the resulting trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: play_basic
//	description: "Loaded sequence replays at its recorded offsets"
//	node: player            # player (default) or recorder
//	ordering: as-is         # player only: as-is, sort or reject
//	run_on_load: false      # player only
//	recorder:               # recorder only: session defaults
//	  max_elements: 0
//	  max_duration: 0s
//	  start_immediately: false
//	steps:
//	  - send: {sequence: {name: A, seq: [{data: a, delay: 0}, {data: b, delay: 50}]}}
//	  - send: {play: A}
//	  - await: 1
//	  - advance: 50ms
//	  - await: 2
//	assertions:
//	  - type: output_count
//	    count: 2
//	  - type: output_contains
//	    payload: b
//	    at_ms: 50
//
// # Steps
//
// Each step does exactly one thing:
//
//   - send: delivers a message to the node and waits until it is processed
//   - advance: moves the scenario clock forward by a duration
//   - await: waits until the trace holds at least N outputs
//
// Replayed payloads are emitted by player goroutines shortly after the
// clock moves, so a step that depends on them must be preceded by await.
//
// # Assertion Types
//
//   - output_contains: an output matches payload (subset match for objects), optionally at at_ms
//   - output_order: outputs matching payloads appear in the given order
//   - output_count: exactly count outputs were produced
//   - error_count: exactly count command errors were reported
//   - error_contains: an error message contains message
//
// # Deterministic Testing
//
// Every scenario runs on a testutil.ManualClock starting at testutil.Epoch
// and with a fixed _msgid, so the trace is identical across runs and can be
// compared against a golden file (see Snapshot and RunWithGolden).
package harness
