package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/streakd/pkg/logger"
	"github.com/okian/streakd/pkg/metrics"
)

// Default write queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// request is one scheduled save. The value is captured at schedule time, so
// a task enqueued before a session transition writes the data it saw then,
// never state mutated afterwards.
type request struct {
	key   string
	value any
}

// WriteQueue serializes fire-and-forget saves behind a single consumer.
// Writes to the same key are strictly ordered, which makes last-write-wins
// safe; enqueuing never blocks the caller.
type WriteQueue struct {
	store Store
	log   logger.Logger

	requests chan request
	capacity int

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// QueueOption applies a configuration option to the WriteQueue.
type QueueOption func(*WriteQueue)

// WithCapacity bounds the number of pending saves.
func WithCapacity(capacity int) QueueOption {
	return func(q *WriteQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithQueueLogger sets a custom logger for the queue.
func WithQueueLogger(log logger.Logger) QueueOption {
	return func(q *WriteQueue) {
		if log != nil {
			q.log = log
		}
	}
}

// NewWriteQueue creates a write queue in front of store and starts its
// consumer.
func NewWriteQueue(ctx context.Context, store Store, opts ...QueueOption) *WriteQueue {
	q := &WriteQueue{
		store:    store,
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan request, q.capacity)

	go q.run(ctx)

	metrics.UpdateSaveQueueDepth(0)
	return q
}

// Enqueue schedules a save of value under key. It returns false when the
// queue is closed or full; the caller's in-memory state stays the source of
// truth either way, so a dropped save only delays durability.
func (q *WriteQueue) Enqueue(key string, value any) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.requests <- request{key: key, value: value}:
		metrics.UpdateSaveQueueDepth(len(q.requests))
		return true
	default:
		metrics.RecordSaveError()
		if q.log != nil {
			q.log.Warn(context.Background(), "write queue full, dropping save",
				logger.String("key", key),
			)
		}
		return false
	}
}

// Len returns the number of pending saves.
func (q *WriteQueue) Len() int {
	return len(q.requests)
}

// run consumes scheduled saves until the queue closes.
func (q *WriteQueue) run(ctx context.Context) {
	defer close(q.done)

	for req := range q.requests {
		if err := q.store.Save(ctx, req.key, req.value); err != nil {
			metrics.RecordSaveError()
			if q.log != nil {
				q.log.Error(ctx, "background save failed",
					logger.String("key", req.key),
					logger.Error(err),
				)
			}
		} else {
			metrics.RecordSaveWritten()
		}
		metrics.UpdateSaveQueueDepth(len(q.requests))
	}
}

// Close stops accepting saves and drains the pending ones. It returns
// ErrDrainTimeout when ctx expires before the drain finishes.
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.requests)
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining write queue: %w", ErrDrainTimeout)
	}
}
