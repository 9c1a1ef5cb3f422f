package engine

import "fmt"

// CountCategory counts the entities of a category
func CountCategory(entities []Entity, c Category) int {
	count := 0
	for _, e := range entities {
		if e.Kind.Category() == c {
			count++
		}
	}
	return count
}

// CountByTag counts the entities of a category per tag
func CountByTag(entities []Entity, c Category) map[string]int {
	counts := make(map[string]int)
	for _, e := range entities {
		if e.Kind.Category() == c {
			counts[e.Kind.Tag()]++
		}
	}
	return counts
}

// CheckInvariants verifies the level is consistent: one special entity per
// cell, every entity on the grid, targets_left matching the targets present,
// and as many loose crates as open targets for every tag.
func (gs *GameState) CheckInvariants() error {
	seen := make(map[Position]Kind, len(gs.Special))
	for _, e := range gs.Special {
		if !gs.InBounds(e.Position) {
			return fmt.Errorf("%s at %s is outside the %dx%d grid", e.Kind, e.Position, gs.Width, gs.Height)
		}
		if prev, dup := seen[e.Position]; dup {
			return fmt.Errorf("%s and %s share %s", prev, e.Kind, e.Position)
		}
		seen[e.Position] = e.Kind
	}

	if targets := CountCategory(gs.Special, Target); targets != gs.TargetsLeft {
		return fmt.Errorf("targets_left is %d but %d targets remain", gs.TargetsLeft, targets)
	}

	crates := CountByTag(gs.Special, Crate)
	targets := CountByTag(gs.Special, Target)
	for tag, n := range crates {
		if targets[tag] != n {
			return fmt.Errorf("tag %q has %d crates but %d targets", tag, n, targets[tag])
		}
	}
	for tag, n := range targets {
		if crates[tag] != n {
			return fmt.Errorf("tag %q has %d targets but %d crates", tag, n, crates[tag])
		}
	}

	if e, ok := gs.At(gs.Player.Position); ok && !e.Kind.Passable() {
		return fmt.Errorf("player at %s overlaps %s", gs.Player.Position, e.Kind)
	}
	return nil
}
