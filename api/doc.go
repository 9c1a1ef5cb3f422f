// Package api provides the REST interface to the crate pusher.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 create a session ({"config_id": "easy"})
//   - GET    /api/sessions                 list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified         compact view of many sessions (?sessionIds=a,b or ?configName=x)
//   - GET    /api/sessions/{id}            session info with state and HUD text
//   - DELETE /api/sessions/{id}            delete a session and release its held keys
//
// Game:
//   - GET    /api/sessions/{id}/state      full game state
//   - GET    /api/sessions/{id}/snapshot   render payload (sprites, player, HUD, text rows)
//   - POST   /api/sessions/{id}/move       {"direction": "up", "reset": false}
//   - POST   /api/sessions/{id}/bulk-move  {"moves": ["up", "left"], "reset": false}, at most 50 applied
//   - POST   /api/sessions/{id}/input      {"event": "press|release|release_all", "direction": "left"}
//   - POST   /api/sessions/{id}/reset      new game, score cleared
//   - POST   /api/sessions/{id}/regenerate new layout around the player, score kept
//   - GET    /api/sessions/{id}/history    paged move history (?page=1&limit=20&order=desc)
//
// Configuration:
//   - GET    /api/configs                  list presets
//   - GET    /api/configs/{name}           one preset's generator options
//   - POST   /api/configs                  save generator options as a preset
//
// Also served: GET /ws?session={id} for live snapshots and key input, and
// GET /health.
//
// Errors are returned as {"error": "..."}: 404 for unknown sessions and
// configs, 400 for invalid directions or options, 500 otherwise.
package api
