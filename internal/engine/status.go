package engine

// Status is the operator-facing indicator of a component: a short label
// plus a fill colour and a shape. The zero value means idle (cleared).
type Status struct {
	Fill  string `json:"fill,omitempty"`
	Shape string `json:"shape,omitempty"`
	Text  string `json:"text,omitempty"`
}

// StatusFunc receives status changes.
type StatusFunc func(Status)

var (
	// StatusIdle clears the indicator.
	StatusIdle = Status{}

	// StatusArmed is shown while a recorder waits for its first event.
	StatusArmed = Status{Fill: "red", Shape: "ring", Text: "recording"}

	// StatusRecording is shown while a recorder's clock runs.
	StatusRecording = Status{Fill: "red", Shape: "dot", Text: "recording"}

	// StatusPlaying is shown while a player replays.
	StatusPlaying = Status{Fill: "green", Shape: "dot", Text: "playing"}
)

// IsIdle reports whether s is the cleared status.
func (s Status) IsIdle() bool {
	return s == StatusIdle
}

func (s Status) String() string {
	if s.IsIdle() {
		return "idle"
	}
	if s == StatusArmed {
		return "armed"
	}
	return s.Text
}
