package engine

type cellState uint8

const (
	cellFree cellState = iota
	// cellReserved blocks placement but does not count toward spacing (walls, player start)
	cellReserved
	// cellMarked holds a generated crate or target
	cellMarked
)

// Grid is the occupancy matrix used while a level is generated.
// It is not kept in sync with crates once play starts.
type Grid struct {
	width  int
	height int
	cells  [][]cellState
	marked int
}

// NewGrid creates an empty width x height occupancy grid
func NewGrid(width, height int) *Grid {
	cells := make([][]cellState, height)
	for y := range cells {
		cells[y] = make([]cellState, width)
	}
	return &Grid{width: width, height: height, cells: cells}
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p indexes a cell of the grid
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

// Occupied reports whether p cannot take a new entity. Cells outside the
// grid count as occupied.
func (g *Grid) Occupied(p Position) bool {
	if !g.InBounds(p) {
		return true
	}
	return g.cells[p.Y][p.X] != cellFree
}

// Mark records a generated entity at p. It returns false, leaving the grid
// untouched, when p is outside the grid or already taken.
func (g *Grid) Mark(p Position) bool {
	if g.Occupied(p) {
		return false
	}
	g.cells[p.Y][p.X] = cellMarked
	g.marked++
	return true
}

// Reserve blocks p for placement without making it count for spacing
func (g *Grid) Reserve(p Position) bool {
	if g.Occupied(p) {
		return false
	}
	g.cells[p.Y][p.X] = cellReserved
	return true
}

// Count returns the number of marked cells
func (g *Grid) Count() int { return g.marked }

// NeighborhoodOccupied reports whether any marked cell lies within the
// Chebyshev square of the given radius around p. Cells outside the grid are
// ignored.
func (g *Grid) NeighborhoodOccupied(p Position, radius int) bool {
	if radius < 0 {
		radius = 0
	}
	for y := p.Y - radius; y <= p.Y+radius; y++ {
		if y < 0 || y >= g.height {
			continue
		}
		for x := p.X - radius; x <= p.X+radius; x++ {
			if x < 0 || x >= g.width {
				continue
			}
			if g.cells[y][x] == cellMarked {
				return true
			}
		}
	}
	return false
}

// spacing tracks the adaptive neighbourhood radius during one placement pass
type spacing struct {
	radius    int
	failures  int
	perShrink int
}

func newSpacing(radius, perShrink int) *spacing {
	if radius < 0 {
		radius = 0
	}
	return &spacing{radius: radius, perShrink: perShrink}
}

func (s *spacing) Radius() int { return s.radius }

// Fail records a candidate rejected for spacing and shrinks the radius after
// perShrink consecutive failures
func (s *spacing) Fail() {
	s.failures++
	if s.perShrink > 0 && s.failures >= s.perShrink && s.radius > 0 {
		s.radius--
		s.failures = 0
	}
}

// Succeed resets the consecutive failure count
func (s *spacing) Succeed() { s.failures = 0 }

// Relax drops the spacing constraint entirely
func (s *spacing) Relax() {
	s.radius = 0
	s.failures = 0
}
