// Package api provides the HTTP REST API for the parking lot puzzle server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Sessions grouped for a multi-session view
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/move - {"vehicle": "A", "displacement": 2, "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": [{"vehicle": "E", "displacement": -2}]}
//   - POST /api/sessions/{id}/reset - Restore the initial layout
//   - GET /api/sessions/{id}/history - Move history (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/legal-moves - Legal displacements per vehicle
//   - GET /api/sessions/{id}/observation - Numeric grid observation
//
// Configuration:
//   - GET /api/configs - List available puzzles
//   - GET /api/configs/{name} - Get a puzzle
//   - POST /api/configs - Save a puzzle; config_id defaults to a slug of its name
//
// WebSocket:
//   - GET /ws?session={id} - Live state updates for one session
//
// A rejected move is not an HTTP error: the response has success=false, an
// error code (blocked, out_of_bounds, unknown_vehicle, invalid_displacement,
// game_over) and, when known, the offending cell.
//
// Errors are returned as JSON:
//
//	{"error": "session not found: ab12"}
//
// Unknown sessions and configs map to 404, unusable configs to 400.
package api
