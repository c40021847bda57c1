package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"main/internal/model"
)

var (
	ErrQueueFull   = errors.New("result queue full")
	ErrQueueClosed = errors.New("result queue closed")
)

// Queue is a bounded, non-blocking queue of finalized pricing results. The
// node sizes it to the deck, so a full queue means a strategy emitted more
// results than jobs, which callers treat as fatal.
type Queue struct {
	ch     chan model.Result
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan model.Result, capacity)}
}

// TryPublish enqueues a result without blocking.
func (q *Queue) TryPublish(r model.Result) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new results.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes results until the context is done or the queue is closed and
// drained.
func (q *Queue) Run(ctx context.Context, handler func(model.Result)) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-q.ch:
			if !ok {
				return
			}
			handler(r)
		}
	}
}
