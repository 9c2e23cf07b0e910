package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// maxLineSize bounds a single JSON-lines message.
const maxLineSize = 16 << 20

// lineWriter writes one JSON message per line. Replay goroutines write
// concurrently, so writes are serialized.
type lineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w}
}

// Write emits msg followed by a newline. The first write error is kept and
// later writes are dropped.
func (lw *lineWriter) Write(msg json.RawMessage) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.err != nil {
		return
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, msg); err != nil {
		buf.Reset()
		buf.Write(msg)
	}
	buf.WriteByte('\n')
	if _, err := lw.w.Write(buf.Bytes()); err != nil {
		lw.err = err
	}
}

// Err returns the first write error.
func (lw *lineWriter) Err() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.err
}

// readLines passes every non-blank line of r to send until EOF or ctx ends.
// Lines send rejects are logged and skipped.
func readLines(ctx context.Context, r io.Reader, send func(json.RawMessage) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		msg := append(json.RawMessage(nil), text...)
		if err := send(msg); err != nil {
			slog.Warn("skipping input line", "line", line, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
