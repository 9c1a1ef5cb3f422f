package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/crate-pusher/game/engine"
	"github.com/wricardo/crate-pusher/game/service"
)

// corridor is the board every mock session starts from
var corridor = []string{
	"#########",
	"#@.r.R..#",
	"#.......#",
	"#...b..B#",
	"#########",
}

// buildState turns a text board into a game state
func buildState(rows []string) *engine.GameState {
	tags := map[rune]string{'r': "red", 'b': "blue"}
	gs := &engine.GameState{
		Width:     len(rows[0]),
		Height:    len(rows),
		Level:     1,
		Player:    engine.Player{Facing: engine.South},
		StartedAt: time.Now(),
	}
	for y, row := range rows {
		for x, ch := range row {
			pos := engine.Position{X: x, Y: y}
			var kind engine.Kind
			switch {
			case ch == '#':
				kind = engine.WallKind()
			case ch == '@':
				gs.Player.Position = pos
			case tags[ch] != "":
				kind, _ = engine.CrateKind(tags[ch])
			case tags[ch+'a'-'A'] != "":
				kind, _ = engine.TargetKind(tags[ch+'a'-'A'])
				gs.TargetsLeft++
			}
			if ch != '#' {
				gs.Floor = append(gs.Floor, engine.Entity{Kind: engine.FloorKind(), Position: pos})
			}
			if kind.Category() != "" {
				gs.Special = append(gs.Special, engine.Entity{Kind: kind, Position: pos})
			}
		}
	}
	return gs
}

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
	rows     []string
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		rows:     corridor,
	}
}

func (m *MockSessionManager) Create(id string, opts *engine.Options) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("t%03d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngineWithState(opts, buildState(m.rows))
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:        id,
		Engine:    eng,
		Options:   opts,
		CreatedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, opts *engine.Options) (*service.Session, error) {
	if session, err := m.Get(id); err == nil {
		return session, nil
	}
	return m.Create(id, opts)
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !exists {
		return errors.New("session not found")
	}
	session.Close()
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	session.Touch(time.Now())
	return nil
}

func (m *MockSessionManager) CleanupExpired(maxAge time.Duration) int {
	return 0
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.Options
	saved   map[string]*engine.Options
}

func NewMockConfigManager() *MockConfigManager {
	opts := engine.DefaultOptions()
	opts.Name = "test"
	opts.Seed = 1
	opts.MinCrates = 2
	opts.MaxCrates = 3
	opts.Tags = []string{"red", "blue"}
	opts.RepeatIntervalMS = 5

	return &MockConfigManager{
		configs: map[string]*engine.Options{
			"test":    &opts,
			"default": &opts,
		},
		saved: make(map[string]*engine.Options),
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.Options, error) {
	opts, exists := m.configs[name]
	if !exists {
		return nil, service.ErrConfigNotFound
	}
	return opts, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	return []*service.ConfigInfo{{Filename: "test.json", ConfigID: "test", Name: "test"}}, nil
}

func (m *MockConfigManager) GetDefault() *engine.Options {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, opts *engine.Options) error {
	m.saved[name] = opts
	return nil
}

// recordingListener collects broadcast snapshots
type recordingListener struct {
	mu    sync.Mutex
	snaps map[string][]*engine.Snapshot
}

func newRecordingListener() *recordingListener {
	return &recordingListener{snaps: make(map[string][]*engine.Snapshot)}
}

func (l *recordingListener) BroadcastToSession(sessionID string, snap *engine.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps[sessionID] = append(l.snaps[sessionID], snap)
}

func (l *recordingListener) count(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.snaps[sessionID])
}

func newTestService(t *testing.T) (service.GameService, *recordingListener, string) {
	t.Helper()
	listener := newRecordingListener()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager(), service.WithListener(listener))
	info, err := svc.CreateSession(context.Background(), "test")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return svc, listener, info.ID
}

func eventTypes(events []service.GameEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// Test cases
func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	tests := []struct {
		name       string
		configName string
		wantErr    error
	}{
		{"create with default config", "", nil},
		{"create with named config", "test", nil},
		{"create with missing config", "nope", service.ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.configName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if info.ID == "" || info.GameState == nil || info.Options == nil {
				t.Errorf("Incomplete session info %+v", info)
			}
			if info.ConfigName != "test" {
				t.Errorf("Expected config id test, got %q", info.ConfigName)
			}
			if info.HUD != "Score: 0 Time: 0 T: 2" {
				t.Errorf("Unexpected HUD %q", info.HUD)
			}
		})
	}
}

func TestGameService_Move(t *testing.T) {
	ctx := context.Background()
	svc, listener, id := newTestService(t)

	t.Run("plain move", func(t *testing.T) {
		result, err := svc.Move(ctx, id, "right", false)
		if err != nil {
			t.Fatalf("Move: %v", err)
		}
		if !result.Success || result.Outcome.Result != engine.ResultMoved {
			t.Fatalf("Expected moved, got %+v", result.Outcome)
		}
		if result.GameState.Player.Position != (engine.Position{X: 2, Y: 1}) {
			t.Errorf("Expected player at (2,1), got %s", result.GameState.Player.Position)
		}
		if got := eventTypes(result.Events); len(got) != 1 || got[0] != service.EventMove {
			t.Errorf("Expected a single move event, got %v", got)
		}
		want := []string{"###", ".@r", "..."}
		for i := range want {
			if result.LocalView3x3[i] != want[i] {
				t.Errorf("Local view row %d = %q, want %q", i, result.LocalView3x3[i], want[i])
			}
		}
	})

	t.Run("push then lock", func(t *testing.T) {
		result, _ := svc.Move(ctx, id, "r", false)
		if got := eventTypes(result.Events); len(got) != 2 || got[1] != service.EventPush {
			t.Errorf("Expected move and push events, got %v", got)
		}
		result, _ = svc.Move(ctx, id, "RIGHT", false)
		if got := eventTypes(result.Events); len(got) != 3 || got[2] != service.EventLock {
			t.Errorf("Expected move, push and lock events, got %v", got)
		}
		if result.GameState.TargetsLeft != 1 || result.GameState.Score.Scored != 1 {
			t.Errorf("Unexpected state after lock: %+v", result.GameState.Score)
		}
	})

	t.Run("blocked by wall", func(t *testing.T) {
		result, err := svc.Move(ctx, id, "up", false)
		if err != nil {
			t.Fatalf("Move: %v", err)
		}
		if result.Success {
			t.Fatal("Expected the wall to block")
		}
		if result.AttemptedTo == nil || result.AttemptedTo.Blocker != engine.Wall || result.AttemptedTo.Y != 0 {
			t.Errorf("Unexpected attempt info %+v", result.AttemptedTo)
		}
		if got := eventTypes(result.Events); len(got) != 1 || got[0] != service.EventBlocked {
			t.Errorf("Expected a blocked event, got %v", got)
		}
		if result.GameState.Player.Facing != engine.North {
			t.Errorf("Expected player to face north, got %s", result.GameState.Player.Facing)
		}
	})

	t.Run("reset before move", func(t *testing.T) {
		result, err := svc.Move(ctx, id, "down", true)
		if err != nil {
			t.Fatalf("Move: %v", err)
		}
		if got := eventTypes(result.Events); got[0] != service.EventReset {
			t.Errorf("Expected reset event first, got %v", got)
		}
		if result.GameState.Level != 1 {
			t.Errorf("Expected level 1 after reset, got %d", result.GameState.Level)
		}
	})

	t.Run("invalid direction", func(t *testing.T) {
		if _, err := svc.Move(ctx, id, "sideways", false); !errors.Is(err, engine.ErrInvalidDirection) {
			t.Errorf("Expected ErrInvalidDirection, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := svc.Move(ctx, "zzzz", "up", false); !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	if listener.count(id) != 5 {
		t.Errorf("Expected 5 broadcasts, got %d", listener.count(id))
	}
}

func TestGameService_LevelCompletion(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	// lock red, then walk round to push blue right onto its target
	moves := []string{"right", "right", "right", "down", "left", "down", "right", "right", "right"}
	result, err := svc.BulkMove(ctx, id, moves, false)
	if err != nil {
		t.Fatalf("BulkMove: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected all moves to succeed, stopped at %d: %s", result.StoppedOnMove, result.StoppedReason)
	}
	if result.LevelsCompleted != 1 || result.LocksDelta != 2 {
		t.Errorf("Expected one level and two locks, got %d and %d", result.LevelsCompleted, result.LocksDelta)
	}
	if result.GameState.Level != 2 || result.GameState.TargetsLeft == 0 {
		t.Errorf("Expected a fresh level 2, got level %d with %d targets", result.GameState.Level, result.GameState.TargetsLeft)
	}
	if result.GameState.Score.Scored != 2 {
		t.Errorf("Expected score to carry over, got %+v", result.GameState.Score)
	}
	last := result.Events[len(result.Events)-1]
	if last.Type != service.EventLevelComplete {
		t.Errorf("Expected level_complete as last event, got %s", last.Type)
	}
}

func TestGameService_BulkMove(t *testing.T) {
	ctx := context.Background()

	t.Run("stops at first blocked move", func(t *testing.T) {
		svc, _, id := newTestService(t)
		result, err := svc.BulkMove(ctx, id, []string{"right", "right", "right", "up", "down"}, false)
		if err != nil {
			t.Fatalf("BulkMove: %v", err)
		}
		if result.Success || result.MovesExecuted != 3 || result.StoppedOnMove != 4 {
			t.Errorf("Expected stop on move 4 after 3 moves, got %+v", result)
		}
		if result.StopReasonCode != "blocked_wall" {
			t.Errorf("Expected blocked_wall, got %q", result.StopReasonCode)
		}
		if result.LocksDelta != 1 || len(result.Steps) != 3 || result.Steps[2].Result != engine.ResultLocked {
			t.Errorf("Unexpected steps %+v", result.Steps)
		}
		if result.StartPos != (engine.Position{X: 1, Y: 1}) || result.EndPos != (engine.Position{X: 4, Y: 1}) {
			t.Errorf("Unexpected start/end %s -> %s", result.StartPos, result.EndPos)
		}
	})

	t.Run("invalid direction stops the batch", func(t *testing.T) {
		svc, _, id := newTestService(t)
		result, err := svc.BulkMove(ctx, id, []string{"down", "north", "down"}, false)
		if err != nil {
			t.Fatalf("BulkMove: %v", err)
		}
		if result.MovesExecuted != 1 || result.StopReasonCode != "invalid_direction" || result.StoppedOnMove != 2 {
			t.Errorf("Unexpected result %+v", result)
		}
	})

	t.Run("truncates long batches", func(t *testing.T) {
		svc, _, id := newTestService(t)
		moves := make([]string, engine.MaxBulkMoves+10)
		for i := range moves {
			moves[i] = []string{"down", "up"}[i%2]
		}
		result, err := svc.BulkMove(ctx, id, moves, false)
		if err != nil {
			t.Fatalf("BulkMove: %v", err)
		}
		if !result.Truncated || result.Limit != engine.MaxBulkMoves || result.MovesExecuted != engine.MaxBulkMoves {
			t.Errorf("Expected truncation to %d, got %+v", engine.MaxBulkMoves, result)
		}
	})
}

func TestGameService_GetMoveHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	for i := 0; i < 5; i++ {
		svc.Move(ctx, id, []string{"down", "up"}[i%2], false)
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantMoves int
		wantFirst int
		hasNext   bool
	}{
		{"default desc", service.HistoryOptions{}, 5, 5, false},
		{"asc page 1", service.HistoryOptions{Page: 1, Limit: 2, Order: "asc"}, 2, 1, true},
		{"asc page 3", service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"}, 1, 5, false},
		{"desc page 2", service.HistoryOptions{Page: 2, Limit: 2, Order: "desc"}, 2, 3, true},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetMoveHistory(ctx, id, tt.opts)
			if err != nil {
				t.Fatalf("GetMoveHistory: %v", err)
			}
			if len(resp.Moves) != tt.wantMoves || resp.TotalMoves != 5 || resp.HasNext != tt.hasNext {
				t.Errorf("Unexpected page %+v", resp)
			}
			if tt.wantMoves > 0 && resp.Moves[0].MoveNumber != tt.wantFirst {
				t.Errorf("Expected first move %d, got %d", tt.wantFirst, resp.Moves[0].MoveNumber)
			}
		})
	}
}

func TestGameService_ListAndDeleteSessions(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(NewMockSessionManager(), NewMockConfigManager())

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateSession(ctx, ""); err != nil {
			t.Fatal(err)
		}
	}
	sessions, err := svc.ListSessions(ctx)
	if err != nil || len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d (%v)", len(sessions), err)
	}

	if err := svc.DeleteSession(ctx, sessions[0].ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := svc.DeleteSession(ctx, sessions[0].ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if _, err := svc.GetSession(ctx, sessions[0].ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected deleted session to be gone, got %v", err)
	}
}

func TestGameService_ResetAndRegenerate(t *testing.T) {
	ctx := context.Background()
	svc, listener, id := newTestService(t)

	svc.BulkMove(ctx, id, []string{"right", "right", "right"}, false)

	state, err := svc.Regenerate(ctx, id)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if state.Level != 2 || state.Score.Scored != 1 {
		t.Errorf("Regenerate should keep score and bump level, got level %d score %+v", state.Level, state.Score)
	}
	if err := state.CheckInvariants(); err != nil {
		t.Errorf("Regenerated level broke invariants: %v", err)
	}

	state, err = svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if state.Level != 1 || state.Score != (engine.Score{}) {
		t.Errorf("Reset should clear score and level, got level %d score %+v", state.Level, state.Score)
	}
	if listener.count(id) != 3 {
		t.Errorf("Expected 3 broadcasts, got %d", listener.count(id))
	}

	snap, err := svc.GetSnapshot(ctx, id)
	if err != nil || snap.HUD.Level != 1 || len(snap.Rows) != state.Height {
		t.Errorf("Unexpected snapshot %+v (%v)", snap, err)
	}
}

func TestGameService_PressAndRelease(t *testing.T) {
	ctx := context.Background()
	svc, listener, id := newTestService(t)

	if err := svc.Press(ctx, id, "down"); err != nil {
		t.Fatalf("Press: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for listener.count(id) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if listener.count(id) < 3 {
		t.Fatalf("Expected repeated intents, got %d broadcasts", listener.count(id))
	}
	info, _ := svc.GetSession(ctx, id)
	if len(info.HeldKeys) != 1 || info.HeldKeys[0] != engine.Down {
		t.Errorf("Expected down held, got %v", info.HeldKeys)
	}

	if err := svc.Release(ctx, id, "down"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	// let any intent still in the queue drain
	time.Sleep(20 * time.Millisecond)
	settled := listener.count(id)
	time.Sleep(30 * time.Millisecond)
	if listener.count(id) != settled {
		t.Errorf("Intents kept arriving after release: %d -> %d", settled, listener.count(id))
	}

	state, _ := svc.GetGameState(ctx, id)
	if state.Player.Position != (engine.Position{X: 1, Y: 3}) {
		t.Errorf("Expected player held against the bottom wall at (1,3), got %s", state.Player.Position)
	}

	if err := svc.Press(ctx, id, "diagonal"); !errors.Is(err, engine.ErrInvalidDirection) {
		t.Errorf("Expected ErrInvalidDirection, got %v", err)
	}
	svc.Press(ctx, id, "left")
	if err := svc.ReleaseAll(ctx, id); err != nil {
		t.Fatalf("ReleaseAll: %v", err)
	}
	if err := svc.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := svc.Press(ctx, id, "up"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestGameService_Configs(t *testing.T) {
	ctx := context.Background()
	configs := NewMockConfigManager()
	svc := service.NewGameService(NewMockSessionManager(), configs)

	infos, err := svc.ListConfigs(ctx)
	if err != nil || len(infos) != 1 {
		t.Fatalf("Unexpected configs %v (%v)", infos, err)
	}
	opts, err := svc.LoadConfig(ctx, "test")
	if err != nil || opts.Name != "test" {
		t.Fatalf("Unexpected options %+v (%v)", opts, err)
	}
	if err := svc.SaveConfig(ctx, "copy", opts); err != nil || configs.saved["copy"] != opts {
		t.Errorf("Expected SaveConfig to reach the manager, got %v", err)
	}
}

func TestSession_CloseStopsInput(t *testing.T) {
	eng, err := engine.NewEngineWithState(nil, buildState(corridor))
	if err != nil {
		t.Fatal(err)
	}
	sess := &service.Session{ID: "x", Engine: eng, CreatedAt: time.Now()}

	var mu sync.Mutex
	applied := 0
	r := sess.Input(func(dir engine.Direction) {
		mu.Lock()
		applied++
		mu.Unlock()
	})
	if r == nil {
		t.Fatal("Expected a repeater")
	}
	r.Press(engine.Down)

	sess.Close()
	if !sess.Closed() || sess.Input(nil) != nil {
		t.Error("Expected a closed session to refuse input")
	}
	if len(sess.HeldKeys()) != 0 {
		t.Errorf("Expected no held keys after close, got %v", sess.HeldKeys())
	}
	if sess.LastAccessed() != sess.CreatedAt {
		t.Error("Expected LastAccessed to default to CreatedAt")
	}
}
