package engine

import (
	"fmt"
	"strings"
)

// Direction is a single directional intent
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every valid direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// Facing is the compass heading the player sprite shows
type Facing string

const (
	North Facing = "n"
	South Facing = "s"
	East  Facing = "e"
	West  Facing = "w"
)

// ParseDirection accepts up/down/left/right (any case) and their first letters
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Delta returns the column and row offsets for one step
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Facing returns the heading the player takes after an intent in d
func (d Direction) Facing() Facing {
	switch d {
	case Up:
		return North
	case Down:
		return South
	case Left:
		return West
	case Right:
		return East
	}
	return South
}
