package input

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/crate-pusher/game/engine"
)

// DefaultInterval is the repeat period of a held direction
const DefaultInterval = 50 * time.Millisecond

type repeatTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Repeater keeps at most one repeat task per held direction
type Repeater struct {
	mu       sync.Mutex
	queue    Enqueuer
	interval time.Duration
	tasks    map[engine.Direction]*repeatTask
}

// NewRepeater creates a repeater feeding queue every interval
func NewRepeater(queue Enqueuer, interval time.Duration) *Repeater {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Repeater{
		queue:    queue,
		interval: interval,
		tasks:    make(map[engine.Direction]*repeatTask),
	}
}

// Press starts repeating dir. The first intent is sent without waiting for
// a tick. Pressing a direction that is already held does nothing.
func (r *Repeater) Press(dir engine.Direction) error {
	if !dir.Valid() {
		return engine.ErrInvalidDirection
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.tasks[dir]; held {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &repeatTask{cancel: cancel, done: make(chan struct{})}
	r.tasks[dir] = task
	go r.repeat(ctx, dir, task.done)
	return nil
}

func (r *Repeater) repeat(ctx context.Context, dir engine.Direction, done chan struct{}) {
	defer close(done)

	if err := r.queue.Enqueue(ctx, dir); err != nil {
		r.stopped(dir, err)
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.queue.Enqueue(ctx, dir); err != nil {
				r.stopped(dir, err)
				return
			}
		}
	}
}

func (r *Repeater) stopped(dir engine.Direction, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	log.WithField("direction", dir).Debugf("Repeat task stopped: %v", err)
}

// Release stops repeating dir. Once it returns no intent for dir is
// enqueued or applied, including intents already buffered in the queue.
func (r *Repeater) Release(dir engine.Direction) {
	r.mu.Lock()
	task, held := r.tasks[dir]
	delete(r.tasks, dir)
	r.mu.Unlock()

	if held {
		task.cancel()
		<-task.done
		r.queue.Drop(dir)
	}
}

// ReleaseAll stops every repeat task
func (r *Repeater) ReleaseAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[engine.Direction]*repeatTask)
	r.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}
	for dir, task := range tasks {
		<-task.done
		r.queue.Drop(dir)
	}
}

// Held returns the directions currently repeating, sorted
func (r *Repeater) Held() []engine.Direction {
	r.mu.Lock()
	defer r.mu.Unlock()
	held := make([]engine.Direction, 0, len(r.tasks))
	for dir := range r.tasks {
		held = append(held, dir)
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	return held
}
