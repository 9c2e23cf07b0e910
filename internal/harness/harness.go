package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/node"
	"github.com/roach88/sequencer/internal/sequence"
	"github.com/roach88/sequencer/internal/testutil"
)

// DefaultMessageID is the _msgid stamped on sent messages when the
// scenario does not set one.
const DefaultMessageID = "scenario-msg"

// AwaitTimeout bounds how long an await step waits in real time.
var AwaitTimeout = 2 * time.Second

// runner is the part of a node the harness drives.
type runner interface {
	Send(msg json.RawMessage) (bool, error)
	Flush(ctx context.Context) (bool, error)
	Errors() <-chan error
	Run(ctx context.Context) error
	Stop()
}

// Harness executes one scenario. It owns the scenario clock and the trace.
type Harness struct {
	clock  *testutil.ManualClock
	logger *slog.Logger
	node   runner

	mu     sync.Mutex
	result *Result
	seq    int64
	grew   chan struct{}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh node with a manual clock. Run returns
// an error only if the scenario cannot be set up; step and assertion
// failures are reported in the result.
//
// Execution flow:
// 1. Build the node the scenario names
// 2. Execute steps in order, stopping at the first failing step
// 3. Stop the node (a recorder flushes its open session)
// 4. Evaluate assertions against the trace
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewManualClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		result: NewResult(),
		grew:   make(chan struct{}, 1),
	}

	n, err := h.newNode(scenario)
	if err != nil {
		return nil, err
	}
	h.node = n

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- n.Run(ctx) }()

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			h.result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			break
		}
	}

	n.Stop()
	if err := <-runErr; err != nil {
		h.result.AddError(fmt.Sprintf("node stopped with error: %v", err))
	}
	h.drainErrors()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

func (h *Harness) newNode(s *Scenario) (runner, error) {
	msgID := s.MessageID
	if msgID == "" {
		msgID = DefaultMessageID
	}
	opts := []node.Option{
		node.WithLogger(h.logger),
		node.WithIDGenerator(testutil.NewFixedIDGenerator(msgID)),
		node.WithErrorBuffer(1024),
	}

	switch s.Node {
	case "", NodePlayer:
		policy, err := sequence.ParseOrderPolicy(s.Ordering)
		if err != nil {
			return nil, err
		}
		opts = append(opts, node.WithEngineOptions(
			engine.WithClock(h.clock),
			engine.WithOrderPolicy(policy),
			engine.WithRunOnLoad(s.RunOnLoad),
		))
		return node.NewPlayerNode(h.output, opts...), nil

	case NodeRecorder:
		var defaults engine.RecordOptions
		if r := s.Recorder; r != nil {
			defaults = engine.RecordOptions{
				MaxElements:      r.MaxElements,
				MaxDuration:      r.MaxDuration,
				StartImmediately: r.StartImmediately,
			}
		}
		opts = append(opts, node.WithEngineOptions(engine.WithClock(h.clock)))
		return node.NewRecorderNode(defaults, h.output, opts...), nil
	}

	return nil, fmt.Errorf("unknown node %q", s.Node)
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch {
	case step.Send != nil:
		return h.send(ctx, step.Send)
	case step.Advance > 0:
		h.clock.Advance(step.Advance)
		return nil
	case step.Await > 0:
		return h.await(step.Await)
	}
	return fmt.Errorf("empty step")
}

// send delivers msg and waits until the node has processed it, so errors
// and synchronous outputs land in the trace before the next step.
func (h *Harness) send(ctx context.Context, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	h.record(TraceEvent{Type: EventSend, Payload: msg})

	if _, err := h.node.Send(msg); err != nil {
		h.record(TraceEvent{Type: EventError, Error: err.Error()})
		return nil
	}
	if _, err := h.node.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	h.drainErrors()
	return nil
}

// await blocks until the trace holds at least n outputs.
func (h *Harness) await(n int) error {
	deadline := time.NewTimer(AwaitTimeout)
	defer deadline.Stop()

	for {
		got := h.outputs()
		if got >= n {
			return nil
		}
		select {
		case <-h.grew:
		case <-deadline.C:
			return fmt.Errorf("await %d outputs: got %d after %s", n, got, AwaitTimeout)
		}
	}
}

func (h *Harness) drainErrors() {
	for {
		select {
		case err := <-h.node.Errors():
			h.record(TraceEvent{Type: EventError, Error: err.Error()})
		default:
			return
		}
	}
}

// output is the node's Output. Player goroutines call it concurrently.
func (h *Harness) output(msg json.RawMessage) {
	h.record(TraceEvent{Type: EventOutput, Payload: append(json.RawMessage(nil), msg...)})

	select {
	case h.grew <- struct{}{}:
	default:
	}
}

func (h *Harness) record(e TraceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	e.Seq = h.seq
	e.AtMs = h.clock.Elapsed().Milliseconds()
	h.result.Trace = append(h.result.Trace, e)
}

func (h *Harness) outputs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.result.Trace {
		if e.Type == EventOutput {
			n++
		}
	}
	return n
}
