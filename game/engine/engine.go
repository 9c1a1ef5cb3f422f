package engine

import (
	"fmt"
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() *Snapshot
	Reset() error
	Regenerate() error
	GetScore() Score
	GetPlayerPosition() Position
	GetTargetsLeft() int

	// Movement operations
	Apply(dir Direction) MoveOutcome
	Move(direction string) (MoveOutcome, error)
	CanMove(dir Direction) bool
	GetPossibleMoves() []Direction

	// Configuration
	GetOptions() Options

	// History
	GetMoveHistory() []MoveHistoryEntry
}

// GameEngine implements the Engine interface. All reads and writes go
// through mu, so a snapshot never observes a half-applied intent or a
// half-built level.
type GameEngine struct {
	mu        sync.RWMutex
	state     *GameState
	opts      Options
	generator *Generator
	now       func() time.Time

	history    []MoveHistoryEntry
	totalMoves int

	// stalled is set when a finished level could not be replaced
	stalled bool
}

// NewEngine creates a new game engine with the provided options
func NewEngine(opts *Options) (*GameEngine, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	o := *opts
	o.ApplyDefaults()
	if err := ValidateOptions(&o); err != nil {
		return nil, err
	}

	gen, err := NewGenerator(o)
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		opts:      o,
		generator: gen,
		now:       time.Now,
	}
	if err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithState wraps an existing state, mainly for tests and tools
func NewEngineWithState(opts *Options, state *GameState) (*GameEngine, error) {
	if state == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	o := DefaultOptions()
	if opts != nil {
		o = *opts
		o.ApplyDefaults()
	}
	o.GridWidth, o.GridHeight = state.Width, state.Height
	gen, err := NewGenerator(o)
	if err != nil {
		return nil, err
	}
	return &GameEngine{
		opts:      o,
		generator: gen,
		state:     state,
		now:       time.Now,
	}, nil
}

// SetClock replaces the time source used for the HUD and history
func (e *GameEngine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// GetState returns a copy of the current game state
func (e *GameEngine) GetState() *GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Snapshot returns the render payload for the current state
func (e *GameEngine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.SnapshotAt(e.now())
}

// Reset starts a new game: fresh layout, player back on the start cell,
// score and level counter cleared. Move history is kept.
func (e *GameEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.opts.StartPosition()
	level, err := e.generator.Generate(start)
	if err != nil {
		return err
	}

	state := &GameState{
		Player:    Player{Position: start, Facing: South},
		Level:     1,
		StartedAt: e.clock(),
	}
	applyLevel(state, level)
	e.state = state
	e.stalled = false
	return nil
}

// Regenerate replaces the layout around the player, keeping the score
func (e *GameEngine) Regenerate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regenerateLocked()
}

func (e *GameEngine) regenerateLocked() error {
	level, err := e.generator.Generate(e.state.Player.Position)
	if err != nil {
		return err
	}
	applyLevel(e.state, level)
	e.state.Level++
	e.stalled = false
	return nil
}

func applyLevel(state *GameState, level *Level) {
	state.Width = level.Width
	state.Height = level.Height
	state.Floor = level.Floor
	state.Special = level.Special
	state.TargetsLeft = level.TargetsLeft
}

func (e *GameEngine) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

// GetScore returns the current score
func (e *GameEngine) GetScore() Score {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Score
}

// GetPlayerPosition returns the current player position
func (e *GameEngine) GetPlayerPosition() Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Player.Position
}

// GetTargetsLeft returns the number of unsatisfied targets
func (e *GameEngine) GetTargetsLeft() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.TargetsLeft
}

// Apply resolves one intent. The player turns to face dir even when the
// step is blocked. Locking the last target regenerates the level in the
// same critical section. If that regeneration failed, the next intent
// retries it before resolving.
func (e *GameEngine) Apply(dir Direction) MoveOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	var retryErr error
	retried := false
	if e.stalled {
		if retryErr = e.regenerateLocked(); retryErr == nil {
			retried = true
		}
	}

	out := e.state.Resolve(dir)
	if dir.Valid() {
		e.state.Player.Facing = dir.Facing()
	}

	e.addMoveToHistory(out)

	if out.LevelComplete {
		if err := e.regenerateLocked(); err != nil {
			out.Error = err.Error()
			e.stalled = true
		} else {
			out.Regenerated = true
		}
	}
	if retried {
		out.Regenerated = true
	} else if retryErr != nil && out.Error == "" {
		out.Error = retryErr.Error()
	}
	return out
}

// Move parses direction and applies it
func (e *GameEngine) Move(direction string) (MoveOutcome, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return MoveOutcome{Direction: Direction(direction), Result: ResultInvalid, Error: err.Error()}, err
	}
	return e.Apply(dir), nil
}

// CanMove checks if an intent in dir would succeed, without applying it
func (e *GameEngine) CanMove(dir Direction) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone().Resolve(dir).Success()
}

// GetPossibleMoves returns all directions that would currently succeed
func (e *GameEngine) GetPossibleMoves() []Direction {
	var possible []Direction
	for _, dir := range Directions {
		if e.CanMove(dir) {
			possible = append(possible, dir)
		}
	}
	return possible
}

// GetOptions returns the engine's options
func (e *GameEngine) GetOptions() Options {
	return e.opts
}

// GetMoveHistory returns a copy of the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]MoveHistoryEntry(nil), e.history...)
}

// BulkMove applies directions in order, stopping at the first one that
// fails. It returns the outcome of every intent that was applied.
func (e *GameEngine) BulkMove(dirs []Direction) []MoveOutcome {
	outcomes := make([]MoveOutcome, 0, len(dirs))
	for _, dir := range dirs {
		out := e.Apply(dir)
		outcomes = append(outcomes, out)
		if !out.Success() {
			break
		}
	}
	return outcomes
}

// addMoveToHistory records an outcome; the caller holds mu
func (e *GameEngine) addMoveToHistory(out MoveOutcome) {
	e.totalMoves++
	e.history = append(e.history, MoveHistoryEntry{
		Action:       out.Direction,
		Result:       out.Result,
		FromPosition: out.From,
		ToPosition:   out.To,
		Level:        e.state.Level,
		Timestamp:    e.clock().Unix(),
		Success:      out.Success(),
		MoveNumber:   e.totalMoves,
	})
}
