package engine_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sequencer/internal/engine"
	"github.com/roach88/sequencer/internal/sequence"
)

const (
	waitFor = 2 * time.Second
	pollFor = time.Millisecond
)

// doc builds a sequence document from (payload, delay) pairs. Payloads are
// JSON strings.
func doc(name string, pairs ...any) sequence.Document {
	d := sequence.Document{Name: name, Seq: []sequence.Element{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		data, _ := json.Marshal(pairs[i])
		d.Seq = append(d.Seq, sequence.NewElement(data, pairs[i+1]))
	}
	return d
}

// statusLog records status transitions.
type statusLog struct {
	mu  sync.Mutex
	got []engine.Status
}

func (l *statusLog) record(s engine.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, s)
}

func (l *statusLog) all() []engine.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]engine.Status(nil), l.got...)
}

func (l *statusLog) last() engine.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.got) == 0 {
		return engine.StatusIdle
	}
	return l.got[len(l.got)-1]
}

// settle gives replay goroutines a few ticks to act on the current time.
func settle() {
	time.Sleep(20 * time.Millisecond)
}

func waitDone(t *testing.T, p *engine.Player) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(waitFor):
		require.FailNow(t, "player did not finish")
	}
}

// docWithoutFields is neither named nor carries a seq.
func docWithoutFields() sequence.Document {
	return sequence.Document{}
}
