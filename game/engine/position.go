package engine

import "fmt"

// Coordinates outside [MinCoord, MaxCoord] cannot be represented at all.
// The range covers the largest grid plus a one cell margin on every side.
const (
	MinCoord = -1
	MaxCoord = MaxGridSize
)

// Position represents x,y coordinates (x = column, y = row)
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NewPosition returns a validated position
func NewPosition(x, y int) (Position, error) {
	if x < MinCoord || y < MinCoord || x > MaxCoord || y > MaxCoord {
		return Position{}, fmt.Errorf("%w: (%d,%d)", ErrPositionOutOfRange, x, y)
	}
	return Position{X: x, Y: y}, nil
}

// Step returns the neighbouring position in the given direction
func (p Position) Step(d Direction) (Position, error) {
	if !d.Valid() {
		return p, fmt.Errorf("%w: %q", ErrInvalidDirection, d)
	}
	dx, dy := d.Delta()
	return NewPosition(p.X+dx, p.Y+dy)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
