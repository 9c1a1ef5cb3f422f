package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Sprite is one drawable cell of a snapshot
type Sprite struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Key string `json:"key"`
}

// PlayerSprite is the drawable player
type PlayerSprite struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Facing Facing `json:"facing"`
	Key    string `json:"key"`
}

// HUD is the heads-up display payload
type HUD struct {
	Score          int `json:"score"`
	ElapsedSeconds int `json:"elapsed_seconds"`
	TargetsLeft    int `json:"targets_left"`
	Moves          int `json:"moves"`
	Scored         int `json:"scored"`
	Level          int `json:"level"`
}

// Text renders the HUD line drawn under the board
func (h HUD) Text() string {
	return fmt.Sprintf("Score: %d Time: %d T: %d", h.Score, h.ElapsedSeconds, h.TargetsLeft)
}

// Snapshot is the read-only render payload. Floor sprites come first and
// special sprites are drawn over them in order, then the player.
type Snapshot struct {
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Floor   []Sprite     `json:"floor"`
	Special []Sprite     `json:"special"`
	Player  PlayerSprite `json:"player"`
	HUD     HUD          `json:"hud"`
	Rows    []string     `json:"rows,omitempty"`
}

// SnapshotAt builds the render payload as seen at now
func (gs *GameState) SnapshotAt(now time.Time) *Snapshot {
	elapsed := now.Sub(gs.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	snap := &Snapshot{
		Width:   gs.Width,
		Height:  gs.Height,
		Floor:   make([]Sprite, 0, len(gs.Floor)),
		Special: make([]Sprite, 0, len(gs.Special)),
		Player: PlayerSprite{
			X:      gs.Player.Position.X,
			Y:      gs.Player.Position.Y,
			Facing: gs.Player.Facing,
			Key:    gs.Player.SpriteKey(),
		},
		HUD: HUD{
			Score:          DisplayScore(gs.Score, elapsed),
			ElapsedSeconds: int(elapsed / time.Second),
			TargetsLeft:    gs.TargetsLeft,
			Moves:          gs.Score.Moves,
			Scored:         gs.Score.Scored,
			Level:          gs.Level,
		},
	}
	for _, e := range gs.Floor {
		snap.Floor = append(snap.Floor, Sprite{X: e.Position.X, Y: e.Position.Y, Key: e.Kind.SpriteKey()})
	}
	for _, e := range gs.Special {
		snap.Special = append(snap.Special, Sprite{X: e.Position.X, Y: e.Position.Y, Key: e.Kind.SpriteKey()})
	}
	snap.Rows = gs.Rows()
	return snap
}

// Rows renders the board as text: '#' wall, '.' floor, lowercase tag
// initial for a crate, uppercase for a target, '*' for a locked crate, '@'
// for the player and '+' for the player standing on a target.
func (gs *GameState) Rows() []string {
	if gs.Width <= 0 || gs.Height <= 0 {
		return nil
	}
	board := make([][]rune, gs.Height)
	for y := range board {
		board[y] = []rune(strings.Repeat(" ", gs.Width))
	}
	for _, e := range gs.Floor {
		if gs.InBounds(e.Position) {
			board[e.Position.Y][e.Position.X] = '.'
		}
	}
	for _, e := range gs.Special {
		if gs.InBounds(e.Position) {
			board[e.Position.Y][e.Position.X] = CellChar(e.Kind)
		}
	}
	if p := gs.Player.Position; gs.InBounds(p) {
		if e, ok := gs.At(p); ok && e.Kind.Category() == Target {
			board[p.Y][p.X] = '+'
		} else {
			board[p.Y][p.X] = '@'
		}
	}

	rows := make([]string, gs.Height)
	for y := range board {
		rows[y] = string(board[y])
	}
	return rows
}

// CellChar returns the text glyph of a kind
func CellChar(k Kind) rune {
	switch k.Category() {
	case Wall:
		return '#'
	case Floor:
		return '.'
	case LockedCrate:
		return '*'
	case Crate, Target:
		r, _ := utf8.DecodeRuneInString(k.Tag())
		if r == utf8.RuneError {
			r = '?'
		}
		if k.Category() == Target {
			return unicode.ToUpper(r)
		}
		return unicode.ToLower(r)
	}
	return '?'
}
