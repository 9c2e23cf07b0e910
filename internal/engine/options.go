package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/roach88/sequencer/internal/sequence"
)

// DefaultTick is the replay re-evaluation period.
const DefaultTick = 2 * time.Millisecond

// EmitFunc receives each replayed payload, unmodified.
type EmitFunc func(payload json.RawMessage)

// options holds settings shared by Player, Recorder and Registry.
type options struct {
	clock     Clock
	logger    *slog.Logger
	status    StatusFunc
	tick      time.Duration
	policy    sequence.OrderPolicy
	runOnLoad bool
}

// Option configures a Player, Recorder or Registry. Options that do not
// apply to a component are ignored by it.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		clock:  SystemClock{},
		logger: slog.Default(),
		status: func(Status) {},
		tick:   DefaultTick,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStatus sets the status side channel.
func WithStatus(fn StatusFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.status = fn
		}
	}
}

// WithTick sets the replay re-evaluation period.
//
// Default: 2ms (DefaultTick). Non-positive values are ignored.
func WithTick(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tick = d
		}
	}
}

// WithOrderPolicy sets how loaded sequences with decreasing delays are
// handled. Default: sequence.OrderAsIs.
func WithOrderPolicy(p sequence.OrderPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithRunOnLoad makes the Registry play every sequence as soon as it is
// loaded.
func WithRunOnLoad(run bool) Option {
	return func(o *options) {
		o.runOnLoad = run
	}
}
