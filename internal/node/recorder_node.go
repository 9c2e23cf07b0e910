package node

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/sequence"
)

// RecordedMessage is the single output of a completed recording session.
type RecordedMessage struct {
	Sequence sequence.Document `json:"sequence"`
}

// RecorderNode routes start and stop commands to a Recorder and captures
// every other message.
type RecorderNode struct {
	*loop
	recorder *engine.Recorder
	out      Output
}

// NewRecorderNode creates a recorder node. defaults apply to sessions whose
// start command does not set a limit.
func NewRecorderNode(defaults engine.RecordOptions, out Output, opts ...Option) *RecorderNode {
	if out == nil {
		out = func(json.RawMessage) {}
	}
	c := newConfig(opts)
	n := &RecorderNode{out: out}

	engineOpts := append([]engine.Option{engine.WithLogger(c.logger)}, c.engineOpts...)
	n.recorder = engine.NewRecorder(defaults, n.publish, engineOpts...)
	n.loop = newLoop("recorder", c, n)
	return n
}

// Recorder returns the node's recorder.
func (n *RecorderNode) Recorder() *engine.Recorder {
	return n.recorder
}

// handle checks stop first, then start; anything else is captured.
func (n *RecorderNode) handle(_ context.Context, msg gjson.Result) []error {
	switch {
	case msg.Get("stop").Exists():
		n.recorder.Stop()
	case msg.Get("start").Exists():
		if err := n.recorder.Start(recordOptions(msg)); err != nil {
			return []error{err}
		}
	default:
		n.recorder.Record(json.RawMessage(msg.Raw))
	}
	return nil
}

func (n *RecorderNode) publish(doc sequence.Document) {
	b, err := json.Marshal(RecordedMessage{Sequence: doc})
	if err != nil {
		n.logger.Error("encode recorded sequence", "sequence", doc.Name, "error", err)
		return
	}
	n.out(b)
}

// close finishes a session still in progress so its capture is not lost.
func (n *RecorderNode) close() {
	n.recorder.Stop()
}
