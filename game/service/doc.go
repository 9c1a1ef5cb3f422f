// Package service provides the business logic layer for the crate pusher.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration loading and saving
//   - Single and bulk moves with event reporting
//   - Held-key input through a per-session intent queue
//   - Paged move history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages generator options loading and validation.
// Listener receives a snapshot after every change to a session.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Direct moves are applied under the service lock. Held keys
// go through the session's input queue, whose single consumer applies each
// intent to the engine, so intents from one session never interleave.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr, service.WithListener(hub))
//
//	info, err := gameService.CreateSession(ctx, "easy")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "up", false)
//
//	// Hold and release a key
//	gameService.Press(ctx, info.ID, "left")
//	gameService.Release(ctx, info.ID, "left")
package service
