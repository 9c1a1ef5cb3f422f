package input

import (
	"context"
	"errors"
	"sync"

	"github.com/wricardo/crate-pusher/game/engine"
)

// ErrQueueClosed is returned when enqueueing on a closed queue
var ErrQueueClosed = errors.New("intent queue closed")

// IntentSink consumes one intent. It is only ever called from Run.
type IntentSink func(dir engine.Direction)

// Enqueuer accepts intents for later processing
type Enqueuer interface {
	Enqueue(ctx context.Context, dir engine.Direction) error
	Drop(dir engine.Direction)
}

type intent struct {
	dir engine.Direction
	gen uint64
}

// Queue serializes intents from any number of producers onto one consumer.
// Every intent carries the generation of its direction at enqueue time;
// Drop bumps the generation so older intents are skipped instead of applied.
type Queue struct {
	intents   chan intent
	sink      IntentSink
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	gens map[engine.Direction]uint64

	// held by Run across the staleness check and the sink call
	applying sync.Mutex
}

// NewQueue creates a queue with the given buffer size
func NewQueue(size int, sink IntentSink) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		intents: make(chan intent, size),
		sink:    sink,
		done:    make(chan struct{}),
		gens:    make(map[engine.Direction]uint64),
	}
}

// Enqueue adds an intent, blocking while the buffer is full
func (q *Queue) Enqueue(ctx context.Context, dir engine.Direction) error {
	if !dir.Valid() {
		return engine.ErrInvalidDirection
	}
	// Checked first so a closed queue never accepts into free buffer space
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	q.mu.Lock()
	it := intent{dir: dir, gen: q.gens[dir]}
	q.mu.Unlock()

	select {
	case q.intents <- it:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled or Close is called
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case it := <-q.intents:
			q.apply(it)
		case <-q.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) apply(it intent) {
	q.applying.Lock()
	defer q.applying.Unlock()

	q.mu.Lock()
	stale := it.gen != q.gens[it.dir]
	q.mu.Unlock()
	if !stale {
		q.sink(it.dir)
	}
}

// Drop discards every intent for dir enqueued before the call. When Drop
// returns no such intent is being applied or will be. It must not be
// called from the sink.
func (q *Queue) Drop(dir engine.Direction) {
	q.mu.Lock()
	q.gens[dir]++
	q.mu.Unlock()

	q.applying.Lock()
	q.applying.Unlock()
}

// Pending returns the number of buffered intents, including dropped ones
// not yet drained
func (q *Queue) Pending() int {
	return len(q.intents)
}

// Close stops the queue. Buffered intents are dropped.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Done is closed once the queue has been closed
func (q *Queue) Done() <-chan struct{} {
	return q.done
}
