// Package websocket pushes session snapshots to browsers and carries their
// key events back.
//
// A central Hub owns every connection. Only its Run loop touches the
// session map; everything else talks to it over channels. The hub satisfies
// service.Listener, so the game service hands it a snapshot after each
// change and the hub fans it out to the session's clients.
//
// Message Protocol:
//
// Messages are JSON-encoded:
//   - Outgoing: {"session_id": "ab12", "event": "state_update", "snapshot": {...}, "hud": "Score: 0 Time: 3 T: 4"}
//   - Incoming: {"event": "press", "direction": "left"} or {"event": "release", "direction": "left"}
//
// A client that disconnects releases every key of its session.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, sessionID, func(event, direction string) error {
//		return handleKey(sessionID, event, direction)
//	})
package websocket
