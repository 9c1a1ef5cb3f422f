package service

import (
	"time"

	"github.com/wricardo/crate-pusher/game/engine"
)

// Event types reported by moves
const (
	EventMove          = "move"
	EventPush          = "push"
	EventLock          = "lock"
	EventBlocked       = "blocked"
	EventLevelComplete = "level_complete"
	EventReset         = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	Options        *engine.Options    `json:"options"`
	HUD            string             `json:"hud"`
	HeldKeys       []engine.Direction `json:"held_keys,omitempty"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success       bool               `json:"success"`
	Outcome       engine.MoveOutcome `json:"outcome"`
	GameState     *engine.GameState  `json:"game_state"`
	Message       string             `json:"message"`
	Events        []GameEvent        `json:"events,omitempty"`
	AttemptedTo   *AttemptInfo       `json:"attempted_to,omitempty"`
	PossibleMoves []engine.Direction `json:"possible_moves,omitempty"`
	LocalView3x3  []string           `json:"local_view_3x3,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked_wall|blocked_crate|blocked_target|blocked_locked_crate|blocked_boundary|invalid_direction
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos        engine.Position `json:"start_pos"`
	EndPos          engine.Position `json:"end_pos"`
	LocksDelta      int             `json:"locks_delta"`
	LevelsCompleted int             `json:"levels_completed"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Failure diagnostics
	AttemptedTo *AttemptInfo `json:"attempted_to,omitempty"`

	Message       string             `json:"message,omitempty"`
	PossibleMoves []engine.Direction `json:"possible_moves,omitempty"`
	LocalView3x3  []string           `json:"local_view_3x3,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx           int               `json:"idx"`
	Dir           engine.Direction  `json:"dir"`
	From          engine.Position   `json:"from"`
	To            engine.Position   `json:"to"`
	Result        engine.MoveResult `json:"result"`
	Crate         string            `json:"crate,omitempty"`
	LevelComplete bool              `json:"level_complete,omitempty"`
}

// AttemptInfo details the cell that stopped a move
type AttemptInfo struct {
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Blocker  engine.Category `json:"blocker"`
	Tag      string          `json:"tag,omitempty"`
	Passable bool            `json:"passable"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "push", "lock", "blocked", "level_complete", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	GridWidth   int    `json:"grid_width"`
	GridHeight  int    `json:"grid_height"`
	MinCrates   int    `json:"min_crates"`
	MaxCrates   int    `json:"max_crates"`
}
