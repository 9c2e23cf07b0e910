package engine

import (
	"slices"
	"strings"

	"github.com/roach88/sequencer/internal/sequence"
)

// Selector addresses sequences in a Registry: all of them, one name, or a
// list of names. An empty name or an empty list means all.
type Selector struct {
	names []string
	all   bool
}

// All selects every loaded sequence.
func All() Selector {
	return Selector{all: true}
}

// One selects a single sequence. One("") is All().
func One(name string) Selector {
	if name == "" {
		return All()
	}
	return Selector{names: []string{sequence.NormalizeName(name)}}
}

// Many selects the named sequences in order. Many() is All().
func Many(names ...string) Selector {
	if len(names) == 0 {
		return All()
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = sequence.NormalizeName(n)
	}
	return Selector{names: normalized}
}

// IsAll reports whether the selector addresses every sequence.
func (s Selector) IsAll() bool {
	return s.all || len(s.names) == 0
}

// Names returns the selected names; nil for All.
func (s Selector) Names() []string {
	if s.IsAll() {
		return nil
	}
	return slices.Clone(s.names)
}

func (s Selector) String() string {
	if s.IsAll() {
		return "*"
	}
	return "[" + strings.Join(s.names, ",") + "]"
}
