package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sequencer/internal/sequence"
)

// ErrUnnamed is returned when saving a document without a name.
var ErrUnnamed = errors.New("sequence has no name")

// SaveSequence archives doc under its name, replacing any previous
// elements stored under that name. Element order is preserved.
func (s *Store) SaveSequence(ctx context.Context, doc sequence.Document) error {
	if doc.Name == "" {
		return fmt.Errorf("save sequence: %w", ErrUnnamed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save sequence: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sequences (name, element_count, duration_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			element_count = excluded.element_count,
			duration_ms   = excluded.duration_ms,
			revision      = sequences.revision + 1
	`, doc.Name, len(doc.Seq), doc.Duration())
	if err != nil {
		return fmt.Errorf("save sequence %s: %w", doc.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE sequence_name = ?`, doc.Name); err != nil {
		return fmt.Errorf("save sequence %s: clear elements: %w", doc.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO elements (sequence_name, position, delay_ms, data)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save sequence %s: prepare: %w", doc.Name, err)
	}
	defer stmt.Close()

	for i, e := range doc.Seq {
		data := string(e.Data)
		if data == "" {
			data = "null"
		}
		if _, err := stmt.ExecContext(ctx, doc.Name, i, e.Delay, data); err != nil {
			return fmt.Errorf("save sequence %s: element %d: %w", doc.Name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save sequence %s: commit: %w", doc.Name, err)
	}
	return nil
}

// DeleteSequence removes a sequence and its elements.
// Returns ErrNotFound if nothing is archived under name.
func (s *Store) DeleteSequence(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sequences WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete sequence %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete sequence %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete sequence %s: %w", name, ErrNotFound)
	}
	return nil
}
