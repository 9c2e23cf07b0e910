package engine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/roach88/sequencer/internal/sequence"
)

// ReservedFields are transport bookkeeping fields stripped from captured
// payloads before they are stored.
var ReservedFields = []string{"_msgid"}

// RecordOptions configures a recording session. Zero values mean
// "unset": no name (generated), no element limit, no duration limit.
type RecordOptions struct {
	Name             string
	MaxElements      int
	MaxDuration      time.Duration
	StartImmediately bool
}

// merge fills unset fields of o from defaults. StartImmediately is set if
// either side sets it.
func (o RecordOptions) merge(defaults RecordOptions) RecordOptions {
	if o.Name == "" {
		o.Name = defaults.Name
	}
	if o.MaxElements <= 0 {
		o.MaxElements = defaults.MaxElements
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = defaults.MaxDuration
	}
	o.StartImmediately = o.StartImmediately || defaults.StartImmediately
	return o
}

// RecorderState is the recorder's lifecycle state.
type RecorderState int

const (
	// RecorderIdle has no session.
	RecorderIdle RecorderState = iota
	// RecorderArmed has a session waiting for its first event.
	RecorderArmed
	// RecorderRecording has a session whose clock is running.
	RecorderRecording
)

func (s RecorderState) String() string {
	switch s {
	case RecorderIdle:
		return "idle"
	case RecorderArmed:
		return "armed"
	case RecorderRecording:
		return "recording"
	}
	return fmt.Sprintf("RecorderState(%d)", int(s))
}

// Recorder captures events into a Sequence while a session is active.
//
// The only output of a Recorder is the snapshot of each completed,
// non-empty session, passed to the output function once.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	state     RecorderState
	seq       *sequence.Sequence
	startedAt time.Time
	limits    RecordOptions
	timer     Timer
	session   uint64

	defaults RecordOptions
	output   func(sequence.Document)
	opts     options
}

// NewRecorder creates an idle Recorder. defaults supply the limits for
// sessions that do not set their own.
func NewRecorder(defaults RecordOptions, output func(sequence.Document), opts ...Option) *Recorder {
	if output == nil {
		output = func(sequence.Document) {}
	}
	return &Recorder{
		defaults: defaults,
		output:   output,
		opts:     newOptions(opts),
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start begins a session. Returns ErrAlreadyRecording if one is active.
//
// With StartImmediately the clock and the duration alarm start now.
// Otherwise the session is armed and the first recorded event starts them.
func (r *Recorder) Start(o RecordOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecorderIdle {
		return fmt.Errorf("%w: %s", ErrAlreadyRecording, r.seq.Name())
	}

	r.limits = o.merge(r.defaults)
	r.seq = sequence.New(r.limits.Name)
	r.session++
	r.state = RecorderArmed
	r.opts.status(StatusArmed)

	if r.limits.StartImmediately {
		r.beginLocked()
	}

	r.opts.logger.Info("recording started",
		"sequence", r.seq.Name(),
		"state", r.state.String(),
		"max_elements", r.limits.MaxElements,
		"max_duration", r.limits.MaxDuration,
	)
	return nil
}

// beginLocked starts the clock and arms the duration alarm.
func (r *Recorder) beginLocked() {
	r.startedAt = r.opts.clock.Now()
	r.state = RecorderRecording
	r.opts.status(StatusRecording)

	if r.limits.MaxDuration > 0 {
		session := r.session
		r.timer = r.opts.clock.AfterFunc(r.limits.MaxDuration, func() {
			r.expire(session)
		})
	}
}

// Record captures payload. It is a no-op when idle. In the armed state the
// call starts the clock and payload becomes the first element (delay 0).
// Reaching MaxElements stops the session.
func (r *Recorder) Record(payload json.RawMessage) {
	var doc *sequence.Document

	r.mu.Lock()
	switch r.state {
	case RecorderIdle:
		r.mu.Unlock()
		return
	case RecorderArmed:
		r.beginLocked()
	}

	delay := r.opts.clock.Now().Sub(r.startedAt).Milliseconds()
	r.seq.AddElement(StripReserved(payload), delay)

	if r.limits.MaxElements > 0 && r.seq.Len() >= r.limits.MaxElements {
		r.opts.logger.Info("maximum number of recorded elements reached",
			"sequence", r.seq.Name(),
			"max_elements", r.limits.MaxElements,
		)
		doc = r.stopLocked()
	}
	r.mu.Unlock()

	r.publish(doc)
}

// Stop ends the session and emits its snapshot if it captured anything.
// It is a no-op when idle.
func (r *Recorder) Stop() {
	r.mu.Lock()
	doc := r.stopLocked()
	r.mu.Unlock()

	r.publish(doc)
}

// expire is the duration alarm. It only stops the session it was armed for.
func (r *Recorder) expire(session uint64) {
	r.mu.Lock()
	if r.session != session || r.state == RecorderIdle {
		r.mu.Unlock()
		return
	}
	r.opts.logger.Info("maximum recording time reached",
		"sequence", r.seq.Name(),
		"max_duration", r.limits.MaxDuration,
	)
	doc := r.stopLocked()
	r.mu.Unlock()

	r.publish(doc)
}

// stopLocked transitions to Idle and returns the snapshot to publish, or
// nil when there is nothing to publish.
func (r *Recorder) stopLocked() *sequence.Document {
	if r.state == RecorderIdle {
		return nil
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	seq := r.seq
	r.state = RecorderIdle
	r.seq = nil
	r.startedAt = time.Time{}
	r.opts.status(StatusIdle)

	r.opts.logger.Info("recording stopped",
		"sequence", seq.Name(),
		"elements", seq.Len(),
	)
	if seq.Len() == 0 {
		return nil
	}
	doc := seq.Snapshot()
	return &doc
}

func (r *Recorder) publish(doc *sequence.Document) {
	if doc != nil {
		r.output(*doc)
	}
}

// StripReserved removes ReservedFields from a JSON object payload. Other
// payloads are returned unchanged.
func StripReserved(payload json.RawMessage) json.RawMessage {
	out := []byte(payload)
	for _, field := range ReservedFields {
		if !gjson.GetBytes(out, field).Exists() {
			continue
		}
		stripped, err := sjson.DeleteBytes(out, field)
		if err != nil {
			continue
		}
		out = stripped
	}
	return out
}
