package node

import (
	"encoding/json"
	"sync"
)

// item is a queued message, or a flush marker when flushed is non-nil.
type item struct {
	msg     json.RawMessage
	flushed chan struct{}
}

// messageQueue is a thread-safe FIFO queue for inbound messages.
//
// The queue is unbounded so Send never blocks the producer (stdin reader,
// inbox watcher). The Run loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type messageQueue struct {
	mu       sync.Mutex
	messages []item
	closed   bool
	signal   chan struct{} // Signals message availability (buffered, size 1)
}

func newMessageQueue() *messageQueue {
	return &messageQueue{
		messages: make([]item, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *messageQueue) Enqueue(m item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.messages = append(q.messages, m)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front item without blocking.
func (q *messageQueue) TryDequeue() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return item{}, false
	}

	m := q.messages[0]

	// Nil out the slot so the backing array does not retain the payload.
	q.messages[0] = item{}

	if len(q.messages) == 1 {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[1:]
	}

	return m, true
}

// Wait returns a channel that signals when messages may be available.
// The channel is closed when the queue is closed.
func (q *messageQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Drained reports whether the queue is closed and empty.
func (q *messageQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.messages) == 0
}

// Close signals that no more messages will be enqueued.
func (q *messageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
