// Package service provides the business logic layer for the parking lot game.
//
// GameService is the high-level API shared by every transport (HTTP,
// WebSocket and MCP). It resolves puzzle configs through a ConfigManager,
// stores sessions through a SessionManager and drives one engine per session.
//
// Move and BulkMove report what happened in transport-friendly form: the
// resulting game state, events, a compact per-step trace and, on failure, a
// stop reason code (blocked, out_of_bounds, unknown_vehicle,
// invalid_displacement, solved, game_over) together with the offending cell.
// GetObservation exposes the same numeric grid encoding the gym package hands
// to learning agents.
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, "classic")
//	result, err := svc.Move(ctx, info.ID, "E", -2, false)
package service
