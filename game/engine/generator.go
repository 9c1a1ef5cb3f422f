package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// Level is a freshly generated layout
type Level struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Floor       []Entity        `json:"floor"`
	Special     []Entity        `json:"special"`
	TargetsLeft int             `json:"targets_left"`
	Quotas      map[string]int  `json:"quotas"`
	Stats       GenerationStats `json:"stats"`
}

// GenerationStats records how much work a level took
type GenerationStats struct {
	Attempts     int `json:"attempts"`
	CratePasses  int `json:"crate_passes"`
	TargetPasses int `json:"target_passes"`
	Relaxations  int `json:"relaxations"`
}

// Generator builds levels from Options
type Generator struct {
	opts Options
	rng  *rand.Rand
}

// NewGenerator creates a generator. A zero Seed seeds from the clock.
func NewGenerator(opts Options) (*Generator, error) {
	opts.ApplyDefaults()
	if err := ValidateOptions(&opts); err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{opts: opts, rng: rand.New(rand.NewSource(seed))}, nil
}

// Options returns the generator's options
func (g *Generator) Options() Options { return g.opts }

// quota is the running count for one tag
type quota struct {
	tag  string
	want int
	have int
}

type quotaSet []quota

func (qs quotaSet) done() bool {
	for _, q := range qs {
		if q.have < q.want {
			return false
		}
	}
	return true
}

// open returns the indexes of tags still under quota
func (qs quotaSet) open() []int {
	var idx []int
	for i, q := range qs {
		if q.have < q.want {
			idx = append(idx, i)
		}
	}
	return idx
}

// reset returns a copy with the running counts cleared
func (qs quotaSet) reset() quotaSet {
	out := make(quotaSet, len(qs))
	for i, q := range qs {
		out[i] = quota{tag: q.tag, want: q.want}
	}
	return out
}

func (qs quotaSet) String() string {
	parts := make([]string, 0, len(qs))
	for _, q := range qs {
		parts = append(parts, fmt.Sprintf("%s=%d/%d", q.tag, q.have, q.want))
	}
	return strings.Join(parts, " ")
}

// region is an inclusive rectangle of cells
type region struct {
	minX, minY, maxX, maxY int
}

// Generate produces a level with the player standing on start
func (g *Generator) Generate(start Position) (*Level, error) {
	w, h := g.opts.GridWidth, g.opts.GridHeight
	if start.X < 1 || start.Y < 1 || start.X > w-2 || start.Y > h-2 {
		return nil, fmt.Errorf("%w: start %s is not inside the walls", ErrInvalidOptions, start)
	}
	capacity := g.opts.CrateCapacity(start)
	if g.opts.MinCrates > capacity {
		return nil, fmt.Errorf("%w: min_crates %d exceeds capacity %d", ErrUnsatisfiable, g.opts.MinCrates, capacity)
	}

	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		level, err := g.attempt(start, capacity)
		if err == nil {
			level.Stats.Attempts = attempt
			return level, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, g.opts.MaxAttempts, lastErr)
}

func (g *Generator) attempt(start Position, capacity int) (*Level, error) {
	w, h := g.opts.GridWidth, g.opts.GridHeight
	grid := NewGrid(w, h)
	level := &Level{Width: w, Height: h}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pos, err := NewPosition(x, y)
			if err != nil {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				level.Special = append(level.Special, Entity{Kind: WallKind(), Position: pos})
				grid.Reserve(pos)
				continue
			}
			level.Floor = append(level.Floor, Entity{Kind: FloorKind(), Position: pos})
		}
	}
	grid.Reserve(start)

	maxCrates := g.opts.MaxCrates
	if maxCrates > capacity {
		maxCrates = capacity
	}
	total := g.opts.MinCrates + g.rng.Intn(maxCrates-g.opts.MinCrates+1)
	quotas := g.partition(total)

	inner := region{minX: 2, minY: 2, maxX: w - 3, maxY: h - 3}
	interior := region{minX: 1, minY: 1, maxX: w - 2, maxY: h - 2}

	crates, passes, relaxed, err := g.place(grid, inner, g.opts.CrateThreshold, quotas, CrateKind)
	level.Stats.CratePasses = passes
	level.Stats.Relaxations += relaxed
	if err != nil {
		return nil, fmt.Errorf("placing crates: %w", err)
	}

	targets, passes, relaxed, err := g.place(grid, interior, g.opts.TargetThreshold, quotas.reset(), TargetKind)
	level.Stats.TargetPasses = passes
	level.Stats.Relaxations += relaxed
	if err != nil {
		return nil, fmt.Errorf("placing targets: %w", err)
	}

	level.Special = append(level.Special, targets...)
	level.Special = append(level.Special, crates...)
	level.TargetsLeft = len(targets)
	level.Quotas = make(map[string]int, len(quotas))
	for _, q := range quotas {
		level.Quotas[q.tag] = q.want
	}
	return level, nil
}

// partition spreads total across the configured tags in small random
// increments. Tags that end with a zero quota are dropped.
func (g *Generator) partition(total int) quotaSet {
	qs := make(quotaSet, len(g.opts.Tags))
	for i, tag := range g.opts.Tags {
		qs[i].tag = tag
	}
	sum := 0
	for sum < total {
		for i := range qs {
			if sum >= total {
				break
			}
			inc := g.rng.Intn(3)
			if inc > total-sum {
				inc = total - sum
			}
			qs[i].want += inc
			sum += inc
		}
	}

	out := qs[:0]
	for _, q := range qs {
		if q.want > 0 {
			out = append(out, q)
		}
	}
	return out
}

// place scans r until every quota is met. Each scan runs in a random
// row- or column-major order. When a budget of MaxScanPasses is spent the
// spacing constraint is dropped, after a second budget every free cell
// becomes eligible, and after a third the pass fails.
func (g *Generator) place(grid *Grid, r region, threshold float64, qs quotaSet, makeKind func(string) (Kind, error)) ([]Entity, int, int, error) {
	var placed []Entity
	sp := newSpacing(g.opts.SpacingRadius, g.opts.FailuresPerShrink)
	budget := g.opts.MaxScanPasses
	relaxations := 0

	pass := 0
	for !qs.done() {
		switch pass {
		case budget:
			sp.Relax()
			relaxations++
		case 2 * budget:
			threshold = 0
			relaxations++
		case 3 * budget:
			return placed, pass, relaxations, fmt.Errorf("quotas unmet after %d passes: %s", pass, qs)
		}
		pass++

		g.scan(r, g.rng.Intn(2) == 0, func(pos Position) bool {
			if grid.Occupied(pos) {
				return true
			}
			if g.rng.Float64() < threshold {
				return true
			}
			if grid.NeighborhoodOccupied(pos, sp.Radius()) {
				sp.Fail()
				return true
			}
			open := qs.open()
			i := open[g.rng.Intn(len(open))]
			kind, err := makeKind(qs[i].tag)
			if err != nil || !grid.Mark(pos) {
				return true
			}
			sp.Succeed()
			qs[i].have++
			placed = append(placed, Entity{Kind: kind, Position: pos})
			return !qs.done()
		})
	}
	return placed, pass, relaxations, nil
}

// scan visits every cell of r, stopping early when visit returns false
func (g *Generator) scan(r region, columnMajor bool, visit func(Position) bool) {
	outerMin, outerMax, innerMin, innerMax := r.minY, r.maxY, r.minX, r.maxX
	if columnMajor {
		outerMin, outerMax, innerMin, innerMax = r.minX, r.maxX, r.minY, r.maxY
	}
	for a := outerMin; a <= outerMax; a++ {
		for b := innerMin; b <= innerMax; b++ {
			x, y := b, a
			if columnMajor {
				x, y = a, b
			}
			pos, err := NewPosition(x, y)
			if err != nil {
				continue
			}
			if !visit(pos) {
				return
			}
		}
	}
}

// SortedTags returns the level's tags in alphabetical order
func (l *Level) SortedTags() []string {
	tags := make([]string, 0, len(l.Quotas))
	for tag := range l.Quotas {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
