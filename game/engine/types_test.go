package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewPosition_Bounds(t *testing.T) {
	tests := []struct {
		x, y    int
		wantErr bool
	}{
		{0, 0, false},
		{-1, -1, false},
		{MaxCoord, MaxCoord, false},
		{-2, 0, true},
		{0, MaxCoord + 1, true},
	}

	for _, tt := range tests {
		_, err := NewPosition(tt.x, tt.y)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewPosition(%d,%d) error = %v, wantErr %v", tt.x, tt.y, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrPositionOutOfRange) {
			t.Errorf("Expected ErrPositionOutOfRange, got %v", err)
		}
	}
}

func TestPosition_Step(t *testing.T) {
	p := Position{X: 3, Y: 3}
	want := map[Direction]Position{
		Up:    {X: 3, Y: 2},
		Down:  {X: 3, Y: 4},
		Left:  {X: 2, Y: 3},
		Right: {X: 4, Y: 3},
	}
	for dir, w := range want {
		got, err := p.Step(dir)
		if err != nil || got != w {
			t.Errorf("Step(%s) = %s, %v; want %s", dir, got, err, w)
		}
	}

	if _, err := (Position{X: -1, Y: 0}).Step(Left); !errors.Is(err, ErrPositionOutOfRange) {
		t.Errorf("Expected out of range stepping past the margin, got %v", err)
	}
	if _, err := p.Step(Direction("north")); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Expected ErrInvalidDirection, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{"up", Up, false},
		{"UP", Up, false},
		{" Down ", Down, false},
		{"l", Left, false},
		{"R", Right, false},
		{"north", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDirection(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, %v; want %q, err=%v", tt.input, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestDirection_Facing(t *testing.T) {
	tests := []struct {
		dir    Direction
		facing Facing
	}{
		{Up, North},
		{Down, South},
		{Left, West},
		{Right, East},
	}
	for _, tt := range tests {
		if tt.dir.Facing() != tt.facing {
			t.Errorf("%s.Facing() = %s, want %s", tt.dir, tt.dir.Facing(), tt.facing)
		}
	}
}

func TestKind_Construction(t *testing.T) {
	if _, err := CrateKind(""); !errors.Is(err, ErrTagRequired) {
		t.Errorf("Expected ErrTagRequired for untagged crate, got %v", err)
	}
	if _, err := ParseKind(Wall, "red"); err == nil {
		t.Error("Expected error for tagged wall")
	}
	if _, err := ParseKind("lava", ""); err == nil {
		t.Error("Expected error for unknown category")
	}

	crate, _ := CrateKind("red")
	red, _ := TargetKind("red")
	blue, _ := TargetKind("blue")
	if !red.Accepts(crate) {
		t.Error("Red target should accept red crate")
	}
	if blue.Accepts(crate) {
		t.Error("Blue target should not accept red crate")
	}
	if crate.Passable() || !red.Passable() || WallKind().Passable() {
		t.Error("Unexpected passability")
	}
	if crate.locked().SpriteKey() != "locked:red" || red.SpriteKey() != "target:red" || WallKind().SpriteKey() != "wall" {
		t.Error("Unexpected sprite keys")
	}
}

func TestKind_JSON(t *testing.T) {
	crate, _ := CrateKind("green")
	data, err := json.Marshal(Entity{Kind: crate, Position: Position{X: 2, Y: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"category":"crate"`) || !strings.Contains(string(data), `"tag":"green"`) {
		t.Errorf("Unexpected JSON %s", data)
	}

	var e Entity
	if err := json.Unmarshal(data, &e); err != nil || e.Kind != crate {
		t.Errorf("Round trip gave %v, %v", e.Kind, err)
	}
	if err := json.Unmarshal([]byte(`{"kind":{"category":"wall","tag":"red"}}`), &e); err == nil {
		t.Error("Expected tagged wall to be rejected")
	}
}

func TestDisplayScore(t *testing.T) {
	tests := []struct {
		name    string
		score   Score
		elapsed time.Duration
		want    int
	}{
		{"fresh", Score{}, 0, 0},
		{"one lock", Score{Moves: 12, Scored: 1}, 30 * time.Second, 58},
		{"clamped", Score{Moves: 90, Scored: 1}, 20 * time.Second, 0},
		{"partial seconds truncate", Score{Moves: 1, Scored: 2}, 1500 * time.Millisecond, 198},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayScore(tt.score, tt.elapsed); got != tt.want {
				t.Errorf("DisplayScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSnapshotAt(t *testing.T) {
	gs := stateFromRows(t,
		"######",
		"#@r.G#",
		"#*..R#",
		"######",
	)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	gs.StartedAt = start
	gs.Score = Score{Moves: 4, Scored: 1}
	gs.Player.Facing = East

	snap := gs.SnapshotAt(start.Add(10 * time.Second))

	if snap.HUD.Score != 86 || snap.HUD.ElapsedSeconds != 10 || snap.HUD.TargetsLeft != 2 {
		t.Errorf("Unexpected HUD %+v", snap.HUD)
	}
	if snap.HUD.Text() != "Score: 86 Time: 10 T: 2" {
		t.Errorf("Unexpected HUD text %q", snap.HUD.Text())
	}
	if snap.Player.Key != "player:e" || snap.Player.X != 1 || snap.Player.Y != 1 {
		t.Errorf("Unexpected player sprite %+v", snap.Player)
	}
	if len(snap.Floor) != 8 || len(snap.Special) != len(gs.Special) {
		t.Errorf("Expected 8 floor and %d special sprites, got %d and %d", len(gs.Special), len(snap.Floor), len(snap.Special))
	}
	want := []string{"######", "#@r.G#", "#*..R#", "######"}
	for i, row := range snap.Rows {
		if row != want[i] {
			t.Errorf("row %d = %q, want %q", i, row, want[i])
		}
	}

	// a clock behind the start never yields negative time
	if s := gs.SnapshotAt(start.Add(-time.Minute)); s.HUD.ElapsedSeconds != 0 {
		t.Errorf("Expected 0 elapsed seconds, got %d", s.HUD.ElapsedSeconds)
	}
}

func TestCheckInvariants(t *testing.T) {
	gs := stateFromRows(t,
		"#####",
		"#@rR#",
		"#####",
	)
	if err := gs.CheckInvariants(); err != nil {
		t.Fatalf("Expected valid state, got %v", err)
	}

	bad := gs.Clone()
	bad.TargetsLeft = 3
	if err := bad.CheckInvariants(); err == nil {
		t.Error("Expected targets_left mismatch to be reported")
	}

	bad = gs.Clone()
	bad.Special[len(bad.Special)-1].Position = Position{X: 2, Y: 1}
	if err := bad.CheckInvariants(); err == nil {
		t.Error("Expected overlap to be reported")
	}

	bad = gs.Clone()
	bad.Player.Position = Position{X: 2, Y: 1}
	if err := bad.CheckInvariants(); err == nil {
		t.Error("Expected player on crate to be reported")
	}
}
