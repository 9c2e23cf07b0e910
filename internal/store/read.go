package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/sequencer/internal/sequence"
)

// SequenceInfo summarizes an archived sequence.
type SequenceInfo struct {
	Name       string `json:"name"`
	Elements   int    `json:"elements"`
	DurationMs int64  `json:"duration_ms"`
	Revision   int64  `json:"revision"`
}

// LoadSequence returns the document archived under name, elements in
// saved order. Returns ErrNotFound if there is none.
func (s *Store) LoadSequence(ctx context.Context, name string) (sequence.Document, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT element_count FROM sequences WHERE name = ?
	`, name).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return sequence.Document{}, fmt.Errorf("load sequence %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return sequence.Document{}, fmt.Errorf("load sequence %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT delay_ms, data
		FROM elements
		WHERE sequence_name = ?
		ORDER BY position ASC
	`, name)
	if err != nil {
		return sequence.Document{}, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	doc := sequence.Document{Name: name, Seq: make([]sequence.Element, 0, count)}
	for rows.Next() {
		var (
			delay int64
			data  string
		)
		if err := rows.Scan(&delay, &data); err != nil {
			return sequence.Document{}, fmt.Errorf("scan element: %w", err)
		}
		doc.Seq = append(doc.Seq, sequence.Element{Data: json.RawMessage(data), Delay: delay})
	}
	if err := rows.Err(); err != nil {
		return sequence.Document{}, fmt.Errorf("iterate elements: %w", err)
	}

	return doc, nil
}

// ListSequences returns every archived sequence ordered by name.
// Returns an empty slice (not nil) for an empty archive.
func (s *Store) ListSequences(ctx context.Context) ([]SequenceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, element_count, duration_ms, revision
		FROM sequences
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sequences: %w", err)
	}
	defer rows.Close()

	infos := []SequenceInfo{}
	for rows.Next() {
		var info SequenceInfo
		if err := rows.Scan(&info.Name, &info.Elements, &info.DurationMs, &info.Revision); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sequences: %w", err)
	}

	return infos, nil
}
