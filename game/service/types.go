package service

import (
	"time"

	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/gym"
)

// Stop reason codes reported by BulkMove
const (
	StopBlocked             = "blocked"
	StopOutOfBounds         = "out_of_bounds"
	StopUnknownVehicle      = "unknown_vehicle"
	StopInvalidDisplacement = "invalid_displacement"
	StopSolved              = "solved"
	StopGameOver            = "game_over"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string               `json:"id"`
	ConfigName     string               `json:"config_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	GameState      *engine.GameState    `json:"game_state"`
	GameConfig     *engine.PuzzleConfig `json:"game_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Error     string            `json:"error,omitempty"`
	Events    []GameEvent       `json:"events,omitempty"`
	Step      *StepInfo         `json:"step,omitempty"`
	Offending *CellInfo         `json:"offending,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	// Summary
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // blocked|out_of_bounds|unknown_vehicle|invalid_displacement|solved|game_over
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Failure diagnostics
	Offending *CellInfo `json:"offending,omitempty"`

	// Final status aids
	Solved     bool             `json:"solved"`
	GameOver   bool             `json:"game_over"`
	Message    string           `json:"message,omitempty"`
	LegalMoves map[string][]int `json:"legal_moves,omitempty"`
}

// StepInfo is a compact record for each executed move
type StepInfo struct {
	Idx          int             `json:"idx"`
	Vehicle      string          `json:"vehicle"`
	Displacement int             `json:"displacement"`
	From         engine.Position `json:"from"`
	To           engine.Position `json:"to"`
	Success      bool            `json:"success"`
	Solved       bool            `json:"solved,omitempty"`
}

// CellInfo describes the first cell that made a move fail
type CellInfo struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Kind    string `json:"kind"` // empty|wall|vehicle|boundary
	Vehicle string `json:"vehicle,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "invalid_move", "solved", "game_over", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Vehicle   string          `json:"vehicle,omitempty"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page" schema:"page"`
	Limit int    `json:"limit" schema:"limit"`
	Order string `json:"order" schema:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// LegalMovesResponse lists every vehicle's legal displacements
type LegalMovesResponse struct {
	SessionID  string           `json:"session_id"`
	LegalMoves map[string][]int `json:"legal_moves"`
	Movable    []string         `json:"movable"`
	Count      int              `json:"count"`
	Solved     bool             `json:"solved"`
	GameOver   bool             `json:"game_over"`
}

// ObservationResponse is the numeric grid encoding used by learning agents
type ObservationResponse struct {
	SessionID   string          `json:"session_id"`
	VehicleIDs  []string        `json:"vehicle_ids"`
	Observation gym.Observation `json:"observation"`
	High        int32           `json:"high"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Solved      bool            `json:"solved"`
}

// ConfigInfo provides information about a puzzle configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Vehicles    int    `json:"vehicles"`
	Exit        string `json:"exit"`
	MaxMoves    int    `json:"max_moves,omitempty"`
}
