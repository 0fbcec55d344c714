package engine

import (
	"sync"

	"github.com/SpongePowered/Common-sub001/internal/pipeline"
)

// Operation is one unit of world work. It runs inside its own capture
// window and mutates the world only through p.
type Operation struct {
	// Name labels the window in logs and the journal.
	Name string

	// Cause, if non-nil, becomes the root cause of every event the window
	// dispatches.
	Cause any

	Run func(p *pipeline.Pipeline) error
}

// opQueue is a thread-safe FIFO queue for operations.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - TryDequeue(): called only from the Run goroutine
//   - Close(): safe from any goroutine, idempotent
type opQueue struct {
	mu     sync.Mutex
	ops    []Operation
	closed bool
	signal chan struct{} // Signals operation availability (buffered, size 1)
}

func newOpQueue() *opQueue {
	return &opQueue{
		ops:    make([]Operation, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an operation. Returns false if the queue is closed.
func (q *opQueue) Enqueue(op Operation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.ops = append(q.ops, op)

	// Non-blocking signal; a pending signal already wakes the consumer.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the oldest operation without blocking.
func (q *opQueue) TryDequeue() (Operation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ops) == 0 {
		return Operation{}, false
	}

	op := q.ops[0]

	// Clear reference so the closure can be collected
	q.ops[0] = Operation{}

	if len(q.ops) == 1 {
		q.ops = q.ops[:0]
	} else {
		q.ops = q.ops[1:]
	}

	return op, true
}

// Wait returns a channel that receives when operations may be available.
// Closed when the queue is closed.
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending operations.
func (q *opQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Closed reports whether Close has been called.
func (q *opQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting operations and wakes the consumer.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return // Already closed
	}

	q.closed = true
	close(q.signal) // Wakes all waiters
}
