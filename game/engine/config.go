package engine

import (
	"fmt"
	"strings"
	"time"
)

// Options represents the tunable parameters of a game, loaded from JSON or YAML
type Options struct {
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description" yaml:"description"`
	GridWidth       int       `json:"grid_width" yaml:"grid_width"`
	GridHeight      int       `json:"grid_height" yaml:"grid_height"`
	MinCrates       int       `json:"min_crates" yaml:"min_crates"`
	MaxCrates       int       `json:"max_crates" yaml:"max_crates"`
	CrateThreshold  float64   `json:"crate_threshold" yaml:"crate_threshold"`
	TargetThreshold float64   `json:"target_threshold" yaml:"target_threshold"`
	SpacingRadius   int       `json:"spacing_radius" yaml:"spacing_radius"`
	Tags            []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Start           *Position `json:"start,omitempty" yaml:"start,omitempty"`
	Seed            int64     `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Retry budget; zero values fall back to the defaults below
	MaxScanPasses     int `json:"max_scan_passes,omitempty" yaml:"max_scan_passes,omitempty"`
	MaxAttempts       int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	FailuresPerShrink int `json:"failures_per_shrink,omitempty" yaml:"failures_per_shrink,omitempty"`

	// RepeatIntervalMS is how often a held key repeats its intent
	RepeatIntervalMS int `json:"repeat_interval_ms,omitempty" yaml:"repeat_interval_ms,omitempty"`
}

const (
	defaultMaxScanPasses    = 40
	defaultMaxAttempts      = 5
	defaultRepeatIntervalMS = 50
)

// DefaultTags are used when a configuration names none
var DefaultTags = []string{"red", "blue", "green", "yellow"}

// DefaultOptions returns the built-in 15x10 configuration
func DefaultOptions() Options {
	opts := Options{
		Name:            "classic",
		Description:     "15x10 warehouse with up to eight crates in four colours",
		GridWidth:       15,
		GridHeight:      10,
		MinCrates:       3,
		MaxCrates:       8,
		CrateThreshold:  0.6,
		TargetThreshold: 0.9,
		SpacingRadius:   1,
	}
	opts.ApplyDefaults()
	return opts
}

// ApplyDefaults fills zero-valued tuning fields
func (o *Options) ApplyDefaults() {
	if len(o.Tags) == 0 {
		o.Tags = append([]string(nil), DefaultTags...)
	}
	if o.MaxScanPasses <= 0 {
		o.MaxScanPasses = defaultMaxScanPasses
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.FailuresPerShrink <= 0 {
		o.FailuresPerShrink = FailuresPerShrink
	}
	if o.RepeatIntervalMS <= 0 {
		o.RepeatIntervalMS = defaultRepeatIntervalMS
	}
}

// RepeatInterval returns the key repeat period
func (o Options) RepeatInterval() time.Duration {
	if o.RepeatIntervalMS <= 0 {
		return defaultRepeatIntervalMS * time.Millisecond
	}
	return time.Duration(o.RepeatIntervalMS) * time.Millisecond
}

// StartPosition returns the configured player start or the grid centre
func (o Options) StartPosition() Position {
	if o.Start != nil {
		return *o.Start
	}
	return Position{X: o.GridWidth / 2, Y: o.GridHeight / 2}
}

// CrateCapacity returns how many crates a level of this size can hold with
// the player standing on start. Crates never touch the perimeter wall and
// each needs a free interior cell for its target.
func (o Options) CrateCapacity(start Position) int {
	inner := (o.GridWidth - 4) * (o.GridHeight - 4)
	if inner < 0 {
		inner = 0
	}
	if start.X >= 2 && start.X <= o.GridWidth-3 && start.Y >= 2 && start.Y <= o.GridHeight-3 {
		inner--
	}
	interior := (o.GridWidth-2)*(o.GridHeight-2) - 1
	if half := interior / 2; half < inner {
		return half
	}
	return inner
}

// MinCapacity is the crate capacity with the player standing on an inner
// cell. Regeneration happens wherever the player is, so this is the bound
// every level of the game has to meet.
func (o Options) MinCapacity() int {
	return o.CrateCapacity(Position{X: 2, Y: 2})
}

// ValidateOptions validates a configuration for correctness and playability
func ValidateOptions(o *Options) error {
	if o == nil {
		return fmt.Errorf("%w: options cannot be nil", ErrInvalidOptions)
	}
	if o.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOptions)
	}

	if o.GridWidth < MinGridSize || o.GridWidth > MaxGridSize {
		return fmt.Errorf("%w: grid_width must be between %d and %d, got %d", ErrInvalidOptions, MinGridSize, MaxGridSize, o.GridWidth)
	}
	if o.GridHeight < MinGridSize || o.GridHeight > MaxGridSize {
		return fmt.Errorf("%w: grid_height must be between %d and %d, got %d", ErrInvalidOptions, MinGridSize, MaxGridSize, o.GridHeight)
	}

	if o.MinCrates < 1 {
		return fmt.Errorf("%w: min_crates must be at least 1, got %d", ErrInvalidOptions, o.MinCrates)
	}
	if o.MaxCrates < o.MinCrates {
		return fmt.Errorf("%w: max_crates (%d) must not be below min_crates (%d)", ErrInvalidOptions, o.MaxCrates, o.MinCrates)
	}

	if o.CrateThreshold < 0 || o.CrateThreshold >= 1 {
		return fmt.Errorf("%w: crate_threshold must be in [0,1), got %g", ErrInvalidOptions, o.CrateThreshold)
	}
	if o.TargetThreshold < 0 || o.TargetThreshold >= 1 {
		return fmt.Errorf("%w: target_threshold must be in [0,1), got %g", ErrInvalidOptions, o.TargetThreshold)
	}
	if o.SpacingRadius < 0 {
		return fmt.Errorf("%w: spacing_radius must not be negative, got %d", ErrInvalidOptions, o.SpacingRadius)
	}

	seen := make(map[string]bool, len(o.Tags))
	for _, tag := range o.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: tags must not be empty", ErrInvalidOptions)
		}
		if seen[tag] {
			return fmt.Errorf("%w: duplicate tag %q", ErrInvalidOptions, tag)
		}
		seen[tag] = true
	}

	start := o.StartPosition()
	if start.X < 1 || start.Y < 1 || start.X > o.GridWidth-2 || start.Y > o.GridHeight-2 {
		return fmt.Errorf("%w: start %s must be inside the walls", ErrInvalidOptions, start)
	}

	if capacity := o.MinCapacity(); o.MinCrates > capacity {
		return fmt.Errorf("%w: min_crates %d exceeds capacity %d of a %dx%d grid",
			ErrUnsatisfiable, o.MinCrates, capacity, o.GridWidth, o.GridHeight)
	}

	return nil
}
