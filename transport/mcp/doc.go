// Package mcp exposes the crate pusher to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and renders the
// answer as text, with the board drawn as ASCII rows (see game_instructions
// for the legend).
//
// MCP Tools:
//   - create_session, get_session, list_sessions: session management
//   - game_state: board, HUD line and player position
//   - move, bulk_move: single moves and batches of up to 50
//   - reset_game, regenerate_level: new game or new layout
//   - move_history: paged history
//   - list_configs: generator presets
//   - game_instructions: rules and legend
//   - describe_cell: exact contents of one cell
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode, one JSON-RPC message per POST
//	resp := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
