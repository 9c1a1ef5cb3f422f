// Package engine provides the core game logic for the Crate Pusher puzzle game.
//
// The engine package implements the game mechanics including:
//   - Validated grid positions and directional movement
//   - Procedural level generation with per-tag crate/target quotas
//   - Push and lock resolution for tagged crates
//   - Score tracking and render snapshots
//   - Option loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState holds the live level (walls, crates,
// targets, player) and Options defines the tunable generation parameters.
// Generator builds a Level from Options; Snapshot is the read-only payload
// handed to renderers.
//
// Usage:
//
//	opts := engine.DefaultOptions()
//
//	gameEngine, err := engine.NewEngine(&opts)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Push the player to the right
//	outcome := gameEngine.Apply(engine.Right)
//	snapshot := gameEngine.Snapshot()
//
// Coordinates:
//
// X is the column and Y is the row, both growing away from the top-left
// corner. Every grid indexed by this package is stored as cells[y][x].
//
// Game Rules:
//
// The player pushes crates one cell at a time. A crate pushed onto a target
// with the same tag locks in place and the target disappears. When no targets
// are left the layout is regenerated around the player and play continues
// with the cumulative score intact.
package engine
