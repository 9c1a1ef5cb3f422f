package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/crate-pusher/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	Regenerate(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Held keys
	Press(ctx context.Context, sessionID, direction string) error
	Release(ctx context.Context, sessionID, direction string) error
	ReleaseAll(ctx context.Context, sessionID string) error

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.Options, error)
	SaveConfig(ctx context.Context, configName string, opts *engine.Options) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, opts *engine.Options) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, opts *engine.Options) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	CleanupExpired(maxAge time.Duration) int
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Options, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Options
	SaveConfig(name string, opts *engine.Options) error
}

// Listener is told about every state change of a session
type Listener interface {
	BroadcastToSession(sessionID string, snap *engine.Snapshot)
}
