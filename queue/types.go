package queue

import (
	"context"
	"iter"
	"time"
)

type Queue[X any] interface {
	// Push adds more events to the queue.
	// All subscribers currently waiting will recieve at least one event before this method returns.
	// Returns true if any subscribers woke up.
	Push(all ...X) bool

	// Join returns a listener that provides all events passed with Push after this call completes.
	// If the context is cancelled, the listener becomes invalid and returns no/empty values.
	Join(ctx context.Context) Listener[X]

	// Pull returns a PullFn bound to a fresh listener on this queue.
	Pull(ctx context.Context) PullFn[X]
}

// PullFn waits up to the given duration for more events.
// Pass zero to check without waiting, or negative to wait forever.
// Returns false once the backing listener is invalid (context cancelled).
type PullFn[X any] func(d time.Duration) (more []X, ok bool)

type Listener[X any] interface {
	// Next waits for and returns the next queue event.
	// It returns the zero X and false if this listener is invalid/cancelled context.
	Next() (X, bool)

	// Batch waits for and returns a slice of all available queue events.
	// If the slice has zero-length, this listener is invalid/cancelled context.
	Batch() []X

	// Consume and Peek take or inspect a single already-available event
	// without waiting.
	Consume() (X, bool)
	Peek() (X, bool)

	// Wait returns a channel which receives the next available event, or is
	// closed without a value if the listener's context is cancelled first.
	Wait() <-chan X

	// BatchIter returns an iterator over successive batches of queue events.
	BatchIter() iter.Seq[[]X]

	Context() context.Context
}
