// Package sequence defines the captured unit of the sequencer: a named,
// ordered list of timestamped payloads with a replay cursor.
//
// Payloads are opaque JSON values. Each Element carries the offset in
// milliseconds from the start of the capture session; replay reproduces
// that absolute timeline against the replay start instant.
//
// # Wire form
//
// A Sequence travels between components (recorder output, player input,
// archive, inbox files) as a Document:
//
//	{"name": "SEQ1a2b3c4d", "seq": [{"data": {...}, "delay": 0}, ...]}
//
// Documents from outside the process are untrusted. ParseDocument checks
// their shape against a CUE schema and Load copies every element, so a
// caller can never mutate a sequence that is being replayed.
//
// A Sequence is not safe for concurrent use. Its owner (a Player or a
// Recorder) serializes access.
package sequence
