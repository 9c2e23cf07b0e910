package harness

import "encoding/json"

// Trace event types.
const (
	EventSend   = "send"
	EventOutput = "output"
	EventError  = "error"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Seq     int64           `json:"seq"`
	AtMs    int64           `json:"at_ms"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step completed and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds sent messages, node outputs and command errors in the
	// order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outputs returns the output events of the trace.
func (r *Result) Outputs() []TraceEvent {
	return r.filter(EventOutput)
}

// CommandErrors returns the error events of the trace.
func (r *Result) CommandErrors() []TraceEvent {
	return r.filter(EventError)
}

func (r *Result) filter(typ string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
