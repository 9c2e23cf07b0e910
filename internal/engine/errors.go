package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/sequencer/internal/sequence"
)

var (
	// ErrInvalidSequenceFormat indicates load input that is not a sequence.
	ErrInvalidSequenceFormat = sequence.ErrInvalidSequenceFormat

	// ErrAlreadyPlaying indicates Play on a player that is playing.
	ErrAlreadyPlaying = errors.New("already playing")

	// ErrAlreadyRecording indicates Start on a recorder with an active session.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrNoSequence indicates Play on a player with nothing loaded.
	ErrNoSequence = errors.New("no sequence loaded")

	// ErrInvalidState indicates an operation not valid in the current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrNameNotFound indicates a selector named an unknown sequence.
	ErrNameNotFound = errors.New("sequence not found")
)

// NameNotFoundError reports the selector name that did not resolve.
type NameNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("no sequence with name %q loaded", e.Name)
}

// Unwrap lets errors.Is match ErrNameNotFound.
func (e *NameNotFoundError) Unwrap() error {
	return ErrNameNotFound
}

// SequenceError attaches the sequence name to an error returned by a
// player during a batch command.
type SequenceError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence %q: %v", e.Name, e.Err)
}

// Unwrap returns the player error.
func (e *SequenceError) Unwrap() error {
	return e.Err
}

// IsNameNotFound returns true if err reports an unresolved selector name.
// Uses errors.As to handle wrapped errors.
func IsNameNotFound(err error) bool {
	var nf *NameNotFoundError
	return errors.As(err, &nf)
}

// MissingNames extracts the unresolved names from a batch of errors, in
// order.
func MissingNames(errs []error) []string {
	var names []string
	for _, err := range errs {
		var nf *NameNotFoundError
		if errors.As(err, &nf) {
			names = append(names, nf.Name)
		}
	}
	return names
}
