package store

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/sequencer/internal/sequence"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDocument builds a document from JSON payload strings spaced
// step milliseconds apart.
func createTestDocument(name string, step int64, payloads ...string) sequence.Document {
	doc := sequence.Document{Name: name, Seq: []sequence.Element{}}
	for i, p := range payloads {
		doc.Seq = append(doc.Seq, sequence.Element{Data: json.RawMessage(p), Delay: int64(i) * step})
	}
	return doc
}

// getTableColumns returns column names for a table.
func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("failed to query table info: %v", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan column: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func contains(items []string, item string) bool {
	return slices.Contains(items, item)
}
