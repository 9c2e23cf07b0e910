package node

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/sequence"
)

// EnumerateResponse is sent in reply to an enumerate command.
type EnumerateResponse struct {
	LoadedSequences []string `json:"loadedSequences"`
}

// PlayerNode routes sequence, play, stop, enumerate and remove commands to
// a Registry. Replayed payloads go to the node output unmodified.
type PlayerNode struct {
	*loop
	registry *engine.Registry
	out      Output
}

// NewPlayerNode creates a player node writing to out.
func NewPlayerNode(out Output, opts ...Option) *PlayerNode {
	if out == nil {
		out = func(json.RawMessage) {}
	}
	c := newConfig(opts)
	n := &PlayerNode{out: out}

	engineOpts := append([]engine.Option{engine.WithLogger(c.logger)}, c.engineOpts...)
	n.registry = engine.NewRegistry(engine.EmitFunc(out), engineOpts...)
	n.loop = newLoop("player", c, n)
	return n
}

// Registry returns the node's registry.
func (n *PlayerNode) Registry() *engine.Registry {
	return n.registry
}

// handle applies the commands in msg in a fixed order: sequence, play,
// stop, enumerate, remove.
func (n *PlayerNode) handle(_ context.Context, msg gjson.Result) []error {
	var errs []error

	if v := msg.Get("sequence"); truthy(v) {
		if err := n.load(v); err != nil {
			errs = append(errs, err)
		}
	}

	for _, cmd := range []engine.Command{engine.CommandPlay, engine.CommandStop} {
		v := msg.Get(string(cmd))
		if !v.Exists() {
			continue
		}
		sel, err := parseSelector(string(cmd), v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, n.registry.Dispatch(cmd, sel)...)
	}

	if truthy(msg.Get("enumerate")) {
		if err := n.enumerate(); err != nil {
			errs = append(errs, err)
		}
	}

	if v := msg.Get("remove"); v.Exists() {
		sel, err := parseSelector("remove", v)
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, n.registry.Remove(sel)...)
		}
	}

	return errs
}

func (n *PlayerNode) load(v gjson.Result) error {
	doc, err := sequence.ParseDocument([]byte(v.Raw))
	if err != nil {
		return fmt.Errorf("load sequence: %w", err)
	}
	if _, err := n.registry.LoadAndStore(doc); err != nil {
		return fmt.Errorf("load sequence: %w", err)
	}
	return nil
}

func (n *PlayerNode) enumerate() error {
	b, err := json.Marshal(EnumerateResponse{LoadedSequences: n.registry.Enumerate()})
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}
	n.out(b)
	return nil
}

func (n *PlayerNode) close() {
	n.registry.Close()
}
