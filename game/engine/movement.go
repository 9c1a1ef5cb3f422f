package engine

// InBounds reports whether p lies on the grid
func (gs *GameState) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < gs.Width && p.Y < gs.Height
}

// entityAt returns the index of the special entity at p, or -1
func (gs *GameState) entityAt(p Position) int {
	for i := range gs.Special {
		if gs.Special[i].Position == p {
			return i
		}
	}
	return -1
}

// At returns the special entity at p, if any
func (gs *GameState) At(p Position) (Entity, bool) {
	if i := gs.entityAt(p); i >= 0 {
		return gs.Special[i], true
	}
	return Entity{}, false
}

// CanMoveTo checks if the player could step onto p without pushing
func (gs *GameState) CanMoveTo(p Position) bool {
	if !gs.InBounds(p) {
		return false
	}
	i := gs.entityAt(p)
	return i < 0 || gs.Special[i].Kind.Passable()
}

// Resolve applies one directional intent. Either the whole transition is
// applied or nothing is: a blocked or invalid intent leaves every field of
// the state untouched.
func (gs *GameState) Resolve(dir Direction) MoveOutcome {
	from := gs.Player.Position
	out := MoveOutcome{Direction: dir, From: from, To: from}

	if !dir.Valid() {
		out.Result = ResultInvalid
		out.Error = ErrInvalidDirection.Error()
		return out
	}

	dx, dy := dir.Delta()
	next, err := from.Step(dir)
	if err != nil || !gs.InBounds(next) {
		return blocked(out, Boundary, Position{X: from.X + dx, Y: from.Y + dy})
	}

	if gs.CanMoveTo(next) {
		gs.Player.Position = next
		gs.Score.Moves++
		out.Result = ResultMoved
		out.To = next
		return out
	}

	idx := gs.entityAt(next)
	crate := gs.Special[idx].Kind
	if crate.Category() != Crate {
		return blocked(out, crate.Category(), next)
	}

	beyond, err := next.Step(dir)
	if err != nil || !gs.InBounds(beyond) {
		return blocked(out, Boundary, Position{X: next.X + dx, Y: next.Y + dy})
	}

	bidx := gs.entityAt(beyond)
	if bidx >= 0 && !gs.Special[bidx].Kind.Accepts(crate) {
		return blocked(out, gs.Special[bidx].Kind.Category(), beyond)
	}

	// Commit
	out.Crate = &CrateMove{From: next, To: beyond, Tag: crate.Tag()}
	gs.Special[idx].Position = beyond
	out.Result = ResultPushed

	if bidx >= 0 {
		gs.Special[idx].Kind = crate.locked()
		gs.Special = append(gs.Special[:bidx], gs.Special[bidx+1:]...)
		gs.Score.Scored++
		gs.TargetsLeft--
		out.Result = ResultLocked
		out.LevelComplete = gs.TargetsLeft == 0
	}

	gs.Player.Position = next
	gs.Score.Moves++
	out.To = next
	return out
}

func blocked(out MoveOutcome, by Category, at Position) MoveOutcome {
	out.Result = ResultBlocked
	out.Blocker = by
	out.BlockedAt = &at
	return out
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.Floor = append([]Entity(nil), gs.Floor...)
	c.Special = append([]Entity(nil), gs.Special...)
	return &c
}
