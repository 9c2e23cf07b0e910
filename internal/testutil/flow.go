package testutil

import (
	"encoding/json"
	"sync"
	"time"
)

// FixedIDGenerator returns the same message ID every time.
//
// This makes the _msgid stamped on inbound messages predictable, so node
// output can be compared against golden files.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed generator. If id is empty, Generate()
// returns "test-msg-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-msg-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// Collector records emitted payloads in arrival order.
//
// Thread-safety: Emit may be called from any goroutine (replay goroutines
// emit concurrently).
type Collector struct {
	mu       sync.Mutex
	payloads []json.RawMessage
	times    []time.Time
	now      func() time.Time
}

// NewCollector creates a collector that timestamps payloads with now. A nil
// now uses time.Now.
func NewCollector(now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{now: now}
}

// Emit records payload. Its signature matches engine.EmitFunc.
func (c *Collector) Emit(payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, append(json.RawMessage(nil), payload...))
	c.times = append(c.times, c.now())
}

// Len returns the number of payloads recorded.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

// Strings returns the recorded payloads as strings.
func (c *Collector) Strings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.payloads))
	for i, p := range c.payloads {
		out[i] = string(p)
	}
	return out
}

// Times returns the instant each payload was recorded.
func (c *Collector) Times() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.times...)
}
