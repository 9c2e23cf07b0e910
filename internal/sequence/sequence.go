package sequence

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Sequence is a named, ordered collection of Elements with a replay cursor.
//
// INVARIANTS:
//   - 0 <= cursor <= len(elements)
//   - elements are append-only while capturing
//   - name is NFC-normalized and never empty
type Sequence struct {
	name     string
	elements []Element
	cursor   int
}

// New creates an empty Sequence. An empty name is replaced by a generated
// identifier (see GenerateName).
func New(name string) *Sequence {
	return &Sequence{name: normalizeName(name)}
}

// GenerateName returns a short pseudo-random identifier, e.g. "SEQ9f86d081".
func GenerateName() string {
	return fmt.Sprintf("SEQ%08x", rand.Uint32())
}

func normalizeName(name string) string {
	name = norm.NFC.String(name)
	if name == "" {
		return GenerateName()
	}
	return name
}

// NormalizeName returns the registry key form of name. Names are compared
// after NFC normalization so visually identical names address one sequence.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// Name returns the sequence name.
func (s *Sequence) Name() string {
	return s.name
}

// Len returns the number of elements.
func (s *Sequence) Len() int {
	return len(s.elements)
}

// Cursor returns the index of the next element Next will return.
func (s *Sequence) Cursor() int {
	return s.cursor
}

// AddElement appends a new element. No ordering check is performed.
func (s *Sequence) AddElement(data json.RawMessage, rawDelay any) {
	s.elements = append(s.elements, NewElement(data, rawDelay))
}

// Load replaces name and elements from doc and resets the cursor.
//
// A document with neither a name nor a seq is not a sequence and yields
// ErrInvalidSequenceFormat; the receiver is left unchanged. A missing name
// keeps the current one. Elements are copied and then arranged per policy.
func (s *Sequence) Load(doc Document, policy OrderPolicy) error {
	if doc.Name == "" && doc.Seq == nil {
		return fmt.Errorf("%w: missing both name and seq", ErrInvalidSequenceFormat)
	}

	elements := make([]Element, len(doc.Seq))
	for i, e := range doc.Seq {
		elements[i] = NewElement(e.Data, e.Delay)
	}
	elements, err := policy.apply(elements)
	if err != nil {
		return err
	}

	if doc.Name != "" {
		s.name = normalizeName(doc.Name)
	}
	if doc.Seq != nil {
		s.elements = elements
	}
	s.cursor = 0
	return nil
}

// Next returns the element at the cursor and advances it. The second return
// value is false once the sequence is exhausted; Next does not loop.
func (s *Sequence) Next() (Element, bool) {
	if s.cursor >= len(s.elements) {
		return Element{}, false
	}
	e := s.elements[s.cursor]
	s.cursor++
	return e, true
}

// HasNext reports whether Next would return an element.
func (s *Sequence) HasNext() bool {
	return s.cursor < len(s.elements)
}

// Reset rewinds the cursor. Elements are kept.
func (s *Sequence) Reset() {
	s.cursor = 0
}

// Clear drops every element and rewinds the cursor.
func (s *Sequence) Clear() {
	s.elements = nil
	s.cursor = 0
}

// Snapshot returns the wire form of the sequence. The element slice is a
// copy; element data is shared because elements are immutable.
func (s *Sequence) Snapshot() Document {
	seq := slices.Clone(s.elements)
	if seq == nil {
		seq = []Element{}
	}
	return Document{Name: s.name, Seq: seq}
}
