// Package mcp provides a Model Context Protocol server for the parking lot puzzle.
//
// The server is a thin client: every tool call is proxied to the REST API, so
// MCP agents, browsers and HTTP clients all see the same sessions.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: grid with coordinates, vehicles, legal moves and status
//   - legal_moves: every legal (vehicle, displacement) pair
//   - move: slide one vehicle by a signed displacement
//   - bulk_move: several slides, as "E-2" strings or {vehicle, displacement} objects
//   - reset_game: restore the initial layout
//   - move_history: paginated attempts, including rejected ones
//   - list_configs: available puzzles
//   - game_instructions: rules and notation
//   - describe_cell: what occupies one coordinate
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
