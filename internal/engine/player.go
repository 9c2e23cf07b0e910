package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/sequencer/internal/sequence"
)

// Player replays one Sequence against elapsed wall time.
//
// Thread-safety: all methods are safe for concurrent use. The replay
// goroutine takes the same lock as the methods, so Stop and emission never
// interleave.
type Player struct {
	mu      sync.Mutex
	seq     *sequence.Sequence
	playing bool
	cancel  context.CancelFunc
	done    chan struct{}

	emit EmitFunc
	opts options
}

// NewPlayer creates an idle Player with nothing loaded. Replayed payloads
// are passed to emit.
func NewPlayer(emit EmitFunc, opts ...Option) *Player {
	if emit == nil {
		emit = func(json.RawMessage) {}
	}
	return &Player{
		emit: emit,
		opts: newOptions(opts),
	}
}

// Load replaces the player's sequence with a copy of doc.
//
// Returns ErrInvalidState while playing and ErrInvalidSequenceFormat for a
// malformed document. On error the previous sequence is kept.
func (p *Player) Load(doc sequence.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return fmt.Errorf("load %q: %w: player is playing", doc.Name, ErrInvalidState)
	}

	seq := sequence.New("")
	if err := seq.Load(doc, p.opts.policy); err != nil {
		return fmt.Errorf("load sequence: %w", err)
	}
	p.seq = seq

	p.opts.logger.Debug("sequence loaded",
		"sequence", seq.Name(),
		"elements", seq.Len(),
	)
	return nil
}

// Name returns the loaded sequence's name, or "" if nothing is loaded.
func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq == nil {
		return ""
	}
	return p.seq.Name()
}

// IsPlaying reports whether a replay is in progress.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Done returns a channel that is closed when the current replay ends,
// whether it finished or was stopped. When idle the channel is already
// closed.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}

// Play starts replaying from the first element.
//
// Returns ErrNoSequence if nothing is loaded and ErrAlreadyPlaying if a
// replay is in progress. An empty sequence finishes immediately without
// emitting anything.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seq == nil {
		return ErrNoSequence
	}
	if p.playing {
		return fmt.Errorf("%w: %s", ErrAlreadyPlaying, p.seq.Name())
	}

	p.seq.Reset()
	if !p.seq.HasNext() {
		p.opts.logger.Debug("sequence empty, nothing to play", "sequence", p.seq.Name())
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.playing = true
	p.cancel = cancel
	p.done = make(chan struct{})
	p.opts.status(StatusPlaying)

	start := p.opts.clock.Now()
	p.opts.logger.Info("playback started",
		"sequence", p.seq.Name(),
		"elements", p.seq.Len(),
	)

	go p.run(ctx, p.done, start)
	return nil
}

// Stop cancels the replay, rewinds the cursor and clears the status.
// Idempotent. When Stop returns the replay goroutine has exited, so no
// further payload is emitted.
func (p *Player) Stop() {
	p.mu.Lock()
	done := p.done
	if p.playing {
		p.opts.logger.Info("playback stopped", "sequence", p.seq.Name())
		p.finishLocked()
	}
	if p.seq != nil {
		p.seq.Reset()
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// finishLocked transitions to Idle without waiting for the replay
// goroutine, which may be the caller.
func (p *Player) finishLocked() {
	p.cancel()
	p.playing = false
	p.cancel = nil
	p.done = nil
	p.seq.Reset()
	p.opts.status(StatusIdle)
}

// run is the replay loop. It re-evaluates the pending element every tick
// until the sequence is exhausted or ctx is cancelled.
func (p *Player) run(ctx context.Context, done chan struct{}, start time.Time) {
	defer close(done)

	ticker := time.NewTicker(p.opts.tick)
	defer ticker.Stop()

	var pending *sequence.Element
	for {
		if p.step(ctx, start, &pending) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// step emits every element that is due and reports whether replay is over.
func (p *Player) step(ctx context.Context, start time.Time, pending **sequence.Element) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Stop won the race for the lock.
	if ctx.Err() != nil {
		return true
	}

	elapsed := p.opts.clock.Now().Sub(start).Milliseconds()
	for {
		if *pending == nil {
			e, ok := p.seq.Next()
			if !ok {
				p.opts.logger.Info("playback finished", "sequence", p.seq.Name())
				p.finishLocked()
				return true
			}
			*pending = &e
		}
		if (*pending).Delay > elapsed {
			return false
		}
		p.emit((*pending).Data)
		*pending = nil
	}
}
