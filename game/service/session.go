package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/crate-pusher/game/engine"
	"github.com/wricardo/crate-pusher/game/input"
)

// intentBuffer bounds how far held keys can run ahead of the engine
const intentBuffer = 16

// Session represents an active game session
type Session struct {
	ID        string
	Engine    *engine.GameEngine
	Options   *engine.Options
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	closed       bool
	queue        *input.Queue
	repeater     *input.Repeater
	stop         context.CancelFunc
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastAccessed returns the time of the last recorded access
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAccessed.IsZero() {
		return s.CreatedAt
	}
	return s.lastAccessed
}

// Closed reports whether Close has been called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Input returns the session's key repeater. The first call starts the
// intent queue that feeds sink; later calls ignore sink. It returns nil
// once the session is closed.
func (s *Session) Input(sink input.IntentSink) *input.Repeater {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.repeater == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		s.queue = input.NewQueue(intentBuffer, sink)
		s.repeater = input.NewRepeater(s.queue, s.repeatInterval())
		go s.queue.Run(ctx)
	}
	return s.repeater
}

// HeldKeys returns the directions currently repeating
func (s *Session) HeldKeys() []engine.Direction {
	s.mu.Lock()
	r := s.repeater
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Held()
}

func (s *Session) repeatInterval() time.Duration {
	if s.Options == nil {
		return input.DefaultInterval
	}
	return s.Options.RepeatInterval()
}

// Close releases every held key and stops the intent queue
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	r, q, stop := s.repeater, s.queue, s.stop
	s.mu.Unlock()

	if r != nil {
		r.ReleaseAll()
	}
	if q != nil {
		q.Close()
	}
	if stop != nil {
		stop()
	}
}
