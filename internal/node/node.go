package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/roach88/sequencer/internal/engine"
)

// MessageIDField is the bookkeeping field Send stamps on every message.
// The recorder strips it from captured payloads.
const MessageIDField = "_msgid"

// ErrInvalidMessage indicates an inbound message that is not a JSON object.
var ErrInvalidMessage = errors.New("message is not a JSON object")

// ErrInvalidCommand indicates a command field with an unusable value.
var ErrInvalidCommand = errors.New("invalid command")

// Output receives outbound messages. It is called from the Run goroutine
// and, for replayed payloads, from replay goroutines.
type Output func(msg json.RawMessage)

// Option configures a node.
type Option func(*config)

type config struct {
	ids        IDGenerator
	logger     *slog.Logger
	engineOpts []engine.Option
	errBuffer  int
}

func newConfig(opts []Option) config {
	c := config{
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
		errBuffer: 64,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithIDGenerator sets the _msgid generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithLogger sets the node logger. It is passed on to the engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEngineOptions passes options to the node's engine component.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// WithErrorBuffer sets the capacity of the Errors channel. Errors are
// dropped (still logged) when the channel is full.
func WithErrorBuffer(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.errBuffer = n
		}
	}
}

// handler processes one message and returns every error it produced.
type handler interface {
	handle(ctx context.Context, msg gjson.Result) []error
	close()
}

// loop is the single-writer message loop shared by both node kinds.
type loop struct {
	kind    string
	queue   *messageQueue
	ids     IDGenerator
	logger  *slog.Logger
	errs    chan error
	handler handler
}

func newLoop(kind string, c config, h handler) *loop {
	return &loop{
		kind:    kind,
		queue:   newMessageQueue(),
		ids:     c.ids,
		logger:  c.logger.With("node", kind),
		errs:    make(chan error, c.errBuffer),
		handler: h,
	}
}

// Send stamps msg with a _msgid (unless present) and enqueues it.
// Returns ErrInvalidMessage for non-object input and false if the node has
// been stopped.
func (l *loop) Send(msg json.RawMessage) (bool, error) {
	if !gjson.ValidBytes(msg) || !gjson.ParseBytes(msg).IsObject() {
		return false, ErrInvalidMessage
	}
	if !gjson.GetBytes(msg, MessageIDField).Exists() {
		stamped, err := sjson.SetBytes(msg, MessageIDField, l.ids.Generate())
		if err != nil {
			return false, fmt.Errorf("stamp %s: %w", MessageIDField, err)
		}
		msg = stamped
	}
	return l.queue.Enqueue(item{msg: msg}), nil
}

// Flush blocks until every message sent before the call has been
// processed. Returns false if the node has been stopped, ctx.Err() if ctx
// ends first.
func (l *loop) Flush(ctx context.Context) (bool, error) {
	done := make(chan struct{})
	if !l.queue.Enqueue(item{flushed: done}) {
		return false, nil
	}
	select {
	case <-done:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Errors returns the channel command errors are reported on.
func (l *loop) Errors() <-chan error {
	return l.errs
}

// QueueLen returns the number of messages waiting to be processed.
func (l *loop) QueueLen() int {
	return l.queue.Len()
}

// Run processes messages until ctx is cancelled or Stop is called and the
// queue is drained. It must be called from exactly one goroutine.
//
// ERROR HANDLING: a failed command is logged with its message ID and
// processing continues; batch commands report one error per failed name.
func (l *loop) Run(ctx context.Context) error {
	l.logger.Info("node starting")
	defer l.handler.close()

	for {
		if it, ok := l.queue.TryDequeue(); ok {
			if it.flushed != nil {
				close(it.flushed)
				continue
			}
			l.process(ctx, it.msg)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("node stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			if l.queue.Drained() {
				l.logger.Info("node stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued messages are processed.
func (l *loop) Stop() {
	l.queue.Close()
}

func (l *loop) process(ctx context.Context, raw json.RawMessage) {
	msg := gjson.ParseBytes(raw)
	msgID := msg.Get(MessageIDField).String()

	l.logger.Debug("processing message", "msgid", msgID)

	for _, err := range l.handler.handle(ctx, msg) {
		l.logger.Error("command failed",
			"msgid", msgID,
			"error", err,
		)
		select {
		case l.errs <- err:
		default:
		}
	}
}
