package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category represents the different kinds of placed objects
type Category string

const (
	Wall        Category = "wall"
	Floor       Category = "floor"
	Crate       Category = "crate"
	Target      Category = "target"
	LockedCrate Category = "locked_crate"

	// Validation constants
	MinGridSize       = 5
	MaxGridSize       = 50
	MaxBulkMoves      = 50
	FailuresPerShrink = 30
)

var (
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrTagRequired        = errors.New("tag required")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrInvalidOptions     = errors.New("invalid options")
	ErrUnsatisfiable      = errors.New("options cannot be satisfied")
	ErrGenerationFailed   = errors.New("level generation failed")
)

// Kind is a category together with the tag it carries. Only crates, targets
// and locked crates carry a tag; the constructors below are the only way to
// build one, so a tagged wall cannot exist.
type Kind struct {
	category Category
	tag      string
}

// WallKind returns the kind of a perimeter wall
func WallKind() Kind { return Kind{category: Wall} }

// FloorKind returns the kind of a render-only floor tile
func FloorKind() Kind { return Kind{category: Floor} }

// CrateKind returns a pushable crate with the given tag
func CrateKind(tag string) (Kind, error) { return taggedKind(Crate, tag) }

// TargetKind returns a target cell accepting crates with the given tag
func TargetKind(tag string) (Kind, error) { return taggedKind(Target, tag) }

// LockedCrateKind returns a crate that has been locked onto its target
func LockedCrateKind(tag string) (Kind, error) { return taggedKind(LockedCrate, tag) }

func taggedKind(c Category, tag string) (Kind, error) {
	if tag == "" {
		return Kind{}, fmt.Errorf("%w for %s", ErrTagRequired, c)
	}
	return Kind{category: c, tag: tag}, nil
}

// Category returns the kind's category
func (k Kind) Category() Category { return k.category }

// Tag returns the kind's tag, empty for walls and floors
func (k Kind) Tag() string { return k.tag }

// Passable reports whether the player may step onto an entity of this kind
func (k Kind) Passable() bool {
	return k.category == Floor || k.category == Target
}

// Accepts reports whether a crate of kind c may lock onto this kind
func (k Kind) Accepts(c Kind) bool {
	return k.category == Target && c.category == Crate && k.tag == c.tag
}

// locked returns the locked variant of a crate kind
func (k Kind) locked() Kind {
	return Kind{category: LockedCrate, tag: k.tag}
}

// SpriteKey returns the symbolic sprite identifier for renderers
func (k Kind) SpriteKey() string {
	switch k.category {
	case Crate:
		return "crate:" + k.tag
	case Target:
		return "target:" + k.tag
	case LockedCrate:
		return "locked:" + k.tag
	}
	return string(k.category)
}

func (k Kind) String() string {
	if k.tag == "" {
		return string(k.category)
	}
	return fmt.Sprintf("%s(%s)", k.category, k.tag)
}

type kindJSON struct {
	Category Category `json:"category"`
	Tag      string   `json:"tag,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(kindJSON{Category: k.category, Tag: k.tag})
}

// UnmarshalJSON implements json.Unmarshaler and rejects invalid combinations
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw kindJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw.Category, raw.Tag)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind builds a kind from its category name and tag
func ParseKind(c Category, tag string) (Kind, error) {
	switch c {
	case Wall, Floor:
		if tag != "" {
			return Kind{}, fmt.Errorf("%s cannot carry tag %q", c, tag)
		}
		return Kind{category: c}, nil
	case Crate, Target, LockedCrate:
		return taggedKind(c, tag)
	}
	return Kind{}, fmt.Errorf("unknown category %q", c)
}

// Entity is a placed object
type Entity struct {
	Kind     Kind     `json:"kind"`
	Position Position `json:"position"`
}

// Player holds the player's position and the direction it faces
type Player struct {
	Position Position `json:"position"`
	Facing   Facing   `json:"facing"`
}

// SpriteKey returns the symbolic sprite identifier for the player
func (p Player) SpriteKey() string {
	return "player:" + string(p.Facing)
}

// Score counts successful moves and locked crates
type Score struct {
	Moves  int `json:"moves"`
	Scored int `json:"scored"`
}

// GameState represents the live level
type GameState struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Floor       []Entity  `json:"floor"`
	Special     []Entity  `json:"special"`
	Player      Player    `json:"player"`
	TargetsLeft int       `json:"targets_left"`
	Score       Score     `json:"score"`
	Level       int       `json:"level"`
	StartedAt   time.Time `json:"started_at"`
}

// MoveResult classifies how an intent was resolved
type MoveResult string

const (
	ResultMoved   MoveResult = "moved"
	ResultPushed  MoveResult = "pushed"
	ResultLocked  MoveResult = "locked"
	ResultBlocked MoveResult = "blocked"
	ResultInvalid MoveResult = "invalid"
)

// Boundary is reported as the blocker when a step would leave the grid
const Boundary Category = "boundary"

// CrateMove describes the crate displaced by a push
type CrateMove struct {
	From Position `json:"from"`
	To   Position `json:"to"`
	Tag  string   `json:"tag"`
}

// MoveOutcome is the result of resolving one directional intent
type MoveOutcome struct {
	Direction     Direction  `json:"direction"`
	Result        MoveResult `json:"result"`
	From          Position   `json:"from"`
	To            Position   `json:"to"`
	Crate         *CrateMove `json:"crate,omitempty"`
	Blocker       Category   `json:"blocker,omitempty"`
	BlockedAt     *Position  `json:"blocked_at,omitempty"`
	LevelComplete bool       `json:"level_complete,omitempty"`
	Regenerated   bool       `json:"regenerated,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Success reports whether the intent changed the player's position
func (o MoveOutcome) Success() bool {
	switch o.Result {
	case ResultMoved, ResultPushed, ResultLocked:
		return true
	}
	return false
}

// MoveHistoryEntry represents a single intent in the game history
type MoveHistoryEntry struct {
	Action       Direction  `json:"action"`
	Result       MoveResult `json:"result"`
	FromPosition Position   `json:"from_position"`
	ToPosition   Position   `json:"to_position"`
	Level        int        `json:"level"`
	Timestamp    int64      `json:"timestamp"`
	Success      bool       `json:"success"`
	MoveNumber   int        `json:"move_number"`
}
