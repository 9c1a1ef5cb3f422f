package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/crate-pusher/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	listener Listener
	mu       sync.RWMutex
}

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithListener registers a listener for session state changes
func WithListener(l Listener) Option {
	return func(s *gameServiceImpl) {
		s.listener = l
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sess.ID)
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" && sess.Options != nil {
		configID = s.getConfigID(sess.Options.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		GameState:      sess.Engine.GetState(),
		Options:        sess.Options,
		HUD:            sess.Engine.Snapshot().HUD.Text(),
		HeldKeys:       sess.HeldKeys(),
	}
}

// notify pushes the session's current snapshot to the listener
func (s *gameServiceImpl) notify(sess *Session) {
	if s.listener == nil {
		return
	}
	s.listener.BroadcastToSession(sess.ID, sess.Engine.Snapshot())
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var opts *engine.Options
	var err error
	if configName != "" {
		opts, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		opts = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.WithFields(log.Fields{"session": sess.ID, "config": opts.Name}).Info("Session created")

	return s.sessionInfo(sess, configName), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, ""), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session and stops its held keys
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	log.WithField("session", sessionID).Info("Session deleted")
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		if err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		events = append(events, resetEvent(sess.Engine.GetPlayerPosition()))
	}

	out := sess.Engine.Apply(dir)
	s.notify(sess)

	state := sess.Engine.GetState()
	result := &MoveResult{
		Success:       out.Success(),
		Outcome:       out,
		GameState:     state,
		Message:       describeOutcome(out, state),
		Events:        append(events, outcomeEvents(out, state)...),
		PossibleMoves: sess.Engine.GetPossibleMoves(),
		LocalView3x3:  buildLocal3x3(state),
	}
	if !out.Success() {
		result.AttemptedTo = attemptInfo(out, state)
	}
	return result, nil
}

// BulkMove executes moves in order, stopping at the first one that fails
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		if err := sess.Engine.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset game: %w", err)
		}
		result.Events = append(result.Events, resetEvent(sess.Engine.GetPlayerPosition()))
	}

	start := sess.Engine.GetState()
	result.StartPos = start.Player.Position

	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		dir, err := engine.ParseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d invalid: %q", i+1, move)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		out := sess.Engine.Apply(dir)
		state := sess.Engine.GetState()
		result.Events = append(result.Events, outcomeEvents(out, state)...)

		if !out.Success() {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, describeOutcome(out, state))
			result.StopReasonCode = "blocked_" + string(out.Blocker)
			result.StoppedOnMove = i + 1
			result.AttemptedTo = attemptInfo(out, state)
			break
		}

		result.MovesExecuted++
		step := StepInfo{
			Idx:           i + 1,
			Dir:           dir,
			From:          out.From,
			To:            out.To,
			Result:        out.Result,
			LevelComplete: out.LevelComplete,
		}
		if out.Crate != nil {
			step.Crate = out.Crate.Tag
		}
		if out.LevelComplete {
			result.LevelsCompleted++
		}
		result.Steps = append(result.Steps, step)
	}

	s.notify(sess)

	end := sess.Engine.GetState()
	result.GameState = end
	result.EndPos = end.Player.Position
	result.LocksDelta = end.Score.Scored - start.Score.Scored
	result.PossibleMoves = sess.Engine.GetPossibleMoves()
	result.LocalView3x3 = buildLocal3x3(end)
	result.Message = fmt.Sprintf("Executed %d of %d moves. %s", result.MovesExecuted, result.RequestedMoves, sess.Engine.Snapshot().HUD.Text())

	return result, nil
}

// Reset starts a fresh game in the session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}
	s.notify(sess)
	return sess.Engine.GetState(), nil
}

// Regenerate builds a new layout around the player, keeping the score
func (s *gameServiceImpl) Regenerate(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.Regenerate(); err != nil {
		return nil, fmt.Errorf("failed to regenerate level: %w", err)
	}
	s.notify(sess)
	return sess.Engine.GetState(), nil
}

// Press starts repeating a direction for the session
func (s *gameServiceImpl) Press(ctx context.Context, sessionID, direction string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return err
	}
	r := sess.Input(s.intentSink(sess))
	if r == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return r.Press(dir)
}

// Release stops repeating a direction for the session
func (s *gameServiceImpl) Release(ctx context.Context, sessionID, direction string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return err
	}
	if r := sess.Input(s.intentSink(sess)); r != nil {
		r.Release(dir)
	}
	return nil
}

// ReleaseAll stops every held key of the session
func (s *gameServiceImpl) ReleaseAll(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}
	if r := sess.Input(s.intentSink(sess)); r != nil {
		r.ReleaseAll()
	}
	return nil
}

// intentSink applies queued intents to the session's engine
func (s *gameServiceImpl) intentSink(sess *Session) func(engine.Direction) {
	return func(dir engine.Direction) {
		out := sess.Engine.Apply(dir)
		if out.Error != "" {
			log.WithField("session", sess.ID).Warnf("Held %s: %s", dir, out.Error)
		}
		s.notify(sess)
	}
}

// GetGameState returns a copy of the session's state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetSnapshot returns the session's render payload
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetMoveHistory returns a page of the session's move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}
	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.Options, error) {
	return s.configs.LoadConfig(configName)
}

func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, opts *engine.Options) error {
	return s.configs.SaveConfig(configName, opts)
}

func resetEvent(at engine.Position) GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Game reset with a fresh level",
		Timestamp: time.Now(),
		Position:  at,
	}
}

// outcomeEvents lists the events one resolved intent produced
func outcomeEvents(out engine.MoveOutcome, state *engine.GameState) []GameEvent {
	now := time.Now()
	if !out.Success() {
		at := out.To
		if out.BlockedAt != nil {
			at = *out.BlockedAt
		}
		return []GameEvent{{Type: EventBlocked, Message: describeOutcome(out, state), Timestamp: now, Position: at}}
	}

	events := []GameEvent{{
		Type:      EventMove,
		Message:   fmt.Sprintf("Moved %s to %s", out.Direction, out.To),
		Timestamp: now,
		Position:  out.To,
	}}
	if out.Crate != nil {
		events = append(events, GameEvent{
			Type:      EventPush,
			Message:   fmt.Sprintf("Pushed %s crate to %s", out.Crate.Tag, out.Crate.To),
			Timestamp: now,
			Position:  out.Crate.To,
		})
	}
	if out.Result == engine.ResultLocked {
		events = append(events, GameEvent{
			Type:      EventLock,
			Message:   fmt.Sprintf("Locked %s crate on its target", out.Crate.Tag),
			Timestamp: now,
			Position:  out.Crate.To,
		})
	}
	if out.LevelComplete {
		msg := fmt.Sprintf("Level complete! Now on level %d", state.Level)
		if !out.Regenerated {
			msg = "Level complete, but a new level could not be generated: " + out.Error
		}
		events = append(events, GameEvent{
			Type:      EventLevelComplete,
			Message:   msg,
			Timestamp: now,
			Position:  out.To,
		})
	}
	return events
}

// describeOutcome renders a one-line summary of an outcome
func describeOutcome(out engine.MoveOutcome, state *engine.GameState) string {
	switch out.Result {
	case engine.ResultMoved:
		return fmt.Sprintf("Moved %s to %s", out.Direction, out.To)
	case engine.ResultPushed:
		return fmt.Sprintf("Pushed %s crate to %s", out.Crate.Tag, out.Crate.To)
	case engine.ResultLocked:
		if out.LevelComplete {
			return fmt.Sprintf("Locked %s crate. Level complete! Now on level %d", out.Crate.Tag, state.Level)
		}
		return fmt.Sprintf("Locked %s crate. %d targets left", out.Crate.Tag, state.TargetsLeft)
	case engine.ResultBlocked:
		if out.BlockedAt != nil {
			return fmt.Sprintf("Blocked by %s at %s", out.Blocker, *out.BlockedAt)
		}
		return fmt.Sprintf("Blocked by %s", out.Blocker)
	}
	return fmt.Sprintf("Invalid move: %s", out.Error)
}

func attemptInfo(out engine.MoveOutcome, state *engine.GameState) *AttemptInfo {
	if out.BlockedAt == nil {
		return nil
	}
	info := &AttemptInfo{
		X:       out.BlockedAt.X,
		Y:       out.BlockedAt.Y,
		Blocker: out.Blocker,
	}
	if e, ok := state.At(*out.BlockedAt); ok {
		info.Tag = e.Kind.Tag()
		info.Passable = e.Kind.Passable()
	}
	return info
}

// buildLocal3x3 returns the 3x3 window of board glyphs centred on the
// player. Cells off the board are blanks.
func buildLocal3x3(state *engine.GameState) []string {
	rows := state.Rows()
	p := state.Player.Position
	view := make([]string, 0, 3)
	for y := p.Y - 1; y <= p.Y+1; y++ {
		var row []rune
		if y >= 0 && y < len(rows) {
			row = []rune(rows[y])
		}
		var b strings.Builder
		for x := p.X - 1; x <= p.X+1; x++ {
			if x < 0 || x >= len(row) {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(row[x])
		}
		view = append(view, b.String())
	}
	return view
}
