package engine

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/sequencer/internal/sequence"
)

// Command is a batch operation the Registry dispatches to players.
type Command string

const (
	// CommandPlay starts the selected players.
	CommandPlay Command = "play"
	// CommandStop stops the selected players.
	CommandStop Command = "stop"
)

// Registry holds the loaded sequences, one Player each, keyed by name.
//
// All players share the Registry's EmitFunc. The registry status shows
// "playing" while at least one player is playing.
//
// Thread-safety: all methods are safe for concurrent use. Batch commands
// resolve their selector under the lock and then act on the players
// without it, so a stop never waits on the registry.
type Registry struct {
	mu      sync.Mutex
	players map[string]*Player

	emit EmitFunc
	opts options

	statusMu sync.Mutex
	active   int
}

// NewRegistry creates an empty Registry.
func NewRegistry(emit EmitFunc, opts ...Option) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		emit:    emit,
		opts:    newOptions(opts),
	}
}

// LoadAndStore builds a Player for doc and stores it under the loaded
// sequence's name, replacing (and stopping) any player of the same name.
// With run-on-load the new player starts immediately.
//
// Returns the stored name. A malformed doc leaves the registry unchanged.
func (r *Registry) LoadAndStore(doc sequence.Document) (string, error) {
	p := NewPlayer(r.emit,
		WithClock(r.opts.clock),
		WithLogger(r.opts.logger),
		WithTick(r.opts.tick),
		WithOrderPolicy(r.opts.policy),
		WithStatus(r.playerStatus),
	)
	if err := p.Load(doc); err != nil {
		return "", err
	}
	name := p.Name()

	r.mu.Lock()
	prev := r.players[name]
	r.players[name] = p
	r.mu.Unlock()

	if prev != nil {
		prev.Stop()
		r.opts.logger.Debug("sequence replaced", "sequence", name)
	}
	r.opts.logger.Info("sequence stored", "sequence", name)

	if r.opts.runOnLoad {
		if err := p.Play(); err != nil {
			return name, &SequenceError{Name: name, Err: err}
		}
	}
	return name, nil
}

// Dispatch runs cmd on every player the selector resolves to. Each name
// that does not resolve and each player error is reported; the rest of
// the batch still runs.
func (r *Registry) Dispatch(cmd Command, sel Selector) []error {
	var apply func(*Player) error
	switch cmd {
	case CommandPlay:
		apply = (*Player).Play
	case CommandStop:
		apply = func(p *Player) error {
			p.Stop()
			return nil
		}
	default:
		return []error{fmt.Errorf("dispatch %q: %w: unknown command", cmd, ErrInvalidState)}
	}

	targets, errs := r.resolve(sel)
	for _, t := range targets {
		if err := apply(t.player); err != nil {
			errs = append(errs, &SequenceError{Name: t.name, Err: err})
		}
	}

	r.opts.logger.Debug("command dispatched",
		"command", string(cmd),
		"selector", sel.String(),
		"targets", len(targets),
		"errors", len(errs),
	)
	return errs
}

// Enumerate returns the stored names, sorted.
func (r *Registry) Enumerate() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := slices.Sorted(maps.Keys(r.players))
	if names == nil {
		names = []string{}
	}
	return names
}

// Get returns the player stored under name.
func (r *Registry) Get(name string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[sequence.NormalizeName(name)]
	return p, ok
}

// Remove deletes the selected players after stopping them. All() empties
// the registry. Each missing name is reported; the rest of the batch still
// runs.
func (r *Registry) Remove(sel Selector) []error {
	var (
		removed []*Player
		errs    []error
	)

	r.mu.Lock()
	if sel.IsAll() {
		for _, p := range r.players {
			removed = append(removed, p)
		}
		clear(r.players)
	} else {
		for _, name := range sel.Names() {
			p, ok := r.players[name]
			if !ok {
				errs = append(errs, &NameNotFoundError{Name: name})
				continue
			}
			delete(r.players, name)
			removed = append(removed, p)
		}
	}
	r.mu.Unlock()

	for _, p := range removed {
		p.Stop()
	}

	r.opts.logger.Info("sequences removed",
		"selector", sel.String(),
		"removed", len(removed),
		"missing", len(errs),
	)
	return errs
}

// Close stops every player. Stored sequences are kept.
func (r *Registry) Close() {
	r.Dispatch(CommandStop, All())
}

type target struct {
	name   string
	player *Player
}

// resolve maps a selector to players, reporting unresolved names.
func (r *Registry) resolve(sel Selector) ([]target, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sel.IsAll() {
		targets := make([]target, 0, len(r.players))
		for _, name := range slices.Sorted(maps.Keys(r.players)) {
			targets = append(targets, target{name: name, player: r.players[name]})
		}
		return targets, nil
	}

	var (
		targets []target
		errs    []error
	)
	for _, name := range sel.Names() {
		p, ok := r.players[name]
		if !ok {
			errs = append(errs, &NameNotFoundError{Name: name})
			continue
		}
		targets = append(targets, target{name: name, player: p})
	}
	return targets, errs
}

// playerStatus aggregates player transitions into the registry status.
func (r *Registry) playerStatus(s Status) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	before := r.active
	if s == StatusPlaying {
		r.active++
	} else if r.active > 0 {
		r.active--
	}

	switch {
	case before == 0 && r.active > 0:
		r.opts.status(StatusPlaying)
	case before > 0 && r.active == 0:
		r.opts.status(StatusIdle)
	}
}
