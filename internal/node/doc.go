// Package node hosts the engine behind a message-passing interface.
//
// A node receives JSON object messages, processes them one at a time in
// arrival order, and sends JSON messages out. Two node kinds exist:
//
//   - PlayerNode owns an engine.Registry. Messages carry the commands
//     sequence, play, stop, enumerate and remove.
//   - RecorderNode owns an engine.Recorder. Messages carry start or stop;
//     any other message is captured.
//
// Single-Writer Loop:
// Send stamps each message with a _msgid (UUIDv7) and enqueues it. Run
// drains the queue in one goroutine, so commands addressed to one node
// never interleave. A failed command is logged and reported on Errors();
// processing continues with the next message.
package node
