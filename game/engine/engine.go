package engine

import (
	"errors"
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	IsSolved() bool

	// Movement operations
	Move(vehicle string, displacement int) MoveOutcome
	CanMove(vehicle string, displacement int) bool
	GetLegalMoves() map[string][]int

	// Configuration
	GetConfig() *PuzzleConfig
	SetConfig(config *PuzzleConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	// Snapshot returns an independent copy of the puzzle instance
	Snapshot() *Lot
}

// MoveOutcome describes the result of a single move attempt
type MoveOutcome struct {
	Success  bool     `json:"success"`
	From     Position `json:"from"`
	To       Position `json:"to"`
	Err      error    `json:"-"`
	Solved   bool     `json:"solved"`
	GameOver bool     `json:"game_over"`
	Message  string   `json:"message"`
}

// GameEngine implements the Engine interface on top of a Lot
type GameEngine struct {
	config   *PuzzleConfig
	messages Messages
	lot      *Lot
	message  string
	moves    int

	history []MoveHistoryEntry
	current []MoveHistoryEntry
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *PuzzleConfig) (*GameEngine, error) {
	if err := ValidatePuzzleConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{}
	if err := engine.load(config); err != nil {
		return nil, err
	}
	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with the built-in puzzle
func NewEngineWithDefaults() *GameEngine {
	engine, err := NewEngine(DefaultPuzzleConfig())
	if err != nil {
		panic(fmt.Sprintf("default puzzle is invalid: %v", err))
	}
	return engine
}

func (e *GameEngine) load(config *PuzzleConfig) error {
	lot, err := NewLotFromConfig(config)
	if err != nil {
		return err
	}
	e.config = config
	e.messages = withDefaultMessages(config.Messages)
	e.lot = lot
	e.message = e.messages.Welcome
	e.moves = 0
	e.history = []MoveHistoryEntry{}
	e.current = []MoveHistoryEntry{}
	return nil
}

// GetState returns a snapshot of the current game state
func (e *GameEngine) GetState() *GameState {
	w, h := e.lot.Dimensions()
	return &GameState{
		Width:             w,
		Height:            h,
		Rows:              e.lot.Rows(),
		Vehicles:          e.lot.Vehicles(),
		GoalVehicle:       e.lot.Goal().ID,
		Exit:              e.lot.Exit().String(),
		LegalMoves:        e.lot.LegalMoves(),
		Solved:            e.lot.IsSolved(),
		GameOver:          e.IsGameOver(),
		Message:           e.message,
		ConfigName:        e.config.Name,
		MaxMoves:          e.config.MaxMoves,
		Moves:             e.moves,
		MoveHistory:       append([]MoveHistoryEntry{}, e.history...),
		TotalMoves:        len(e.history),
		CurrentMoves:      append([]MoveHistoryEntry{}, e.current...),
		CurrentMovesCount: len(e.current),
	}
}

// SetState restores a persisted snapshot. Vehicle anchors are replayed onto
// the configured layout, so a snapshot that breaks any occupancy rule is rejected
// and the engine is left unchanged.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.ConfigName != "" && state.ConfigName != e.config.Name {
		return fmt.Errorf("state belongs to config %q, engine runs %q", state.ConfigName, e.config.Name)
	}
	w, h := e.lot.Dimensions()
	if state.Width != w || state.Height != h {
		return fmt.Errorf("state is %dx%d, layout is %dx%d", state.Width, state.Height, w, h)
	}

	lot, err := e.lot.Restore(state.Anchors())
	if err != nil {
		return err
	}

	e.lot = lot
	e.message = state.Message
	e.moves = state.Moves
	e.history = append([]MoveHistoryEntry{}, state.MoveHistory...)
	e.current = append([]MoveHistoryEntry{}, state.CurrentMoves...)
	return nil
}

// Reset restores the initial layout. Cumulative history is kept; only the
// current segment is cleared.
func (e *GameEngine) Reset() *GameState {
	e.lot = e.lot.Reset()
	e.message = e.messages.Welcome
	e.moves = 0
	e.current = []MoveHistoryEntry{}
	return e.GetState()
}

// IsGameOver reports whether the puzzle is solved or the move budget is spent
func (e *GameEngine) IsGameOver() bool {
	if e.lot.IsSolved() {
		return true
	}
	return e.config.MaxMoves > 0 && e.moves >= e.config.MaxMoves
}

// IsSolved reports whether the goal vehicle has reached the exit
func (e *GameEngine) IsSolved() bool {
	return e.lot.IsSolved()
}

// Move attempts to slide a vehicle and records the attempt in the history
func (e *GameEngine) Move(vehicle string, displacement int) MoveOutcome {
	var from Position
	if v, ok := e.lot.Vehicle(vehicle); ok {
		from = v.Anchor
	}
	outcome := MoveOutcome{From: from, To: from}

	if e.IsGameOver() {
		outcome.Err = ErrGameOver
	} else if to, err := e.lot.Move(vehicle, displacement); err != nil {
		outcome.Err = err
	} else {
		outcome.Success = true
		outcome.To = to
		e.moves++
	}

	outcome.Solved = e.lot.IsSolved()
	outcome.GameOver = e.IsGameOver()
	e.message = e.messageFor(outcome)
	outcome.Message = e.message

	e.addMoveToHistory(vehicle, displacement, outcome)
	return outcome
}

func (e *GameEngine) messageFor(o MoveOutcome) string {
	switch {
	case o.Solved:
		return fmt.Sprintf(e.messages.Solved, e.moves)
	case o.GameOver:
		return e.messages.OutOfMoves
	case o.Success:
		return e.messages.Moved
	}
	switch {
	case errors.Is(o.Err, ErrBlocked):
		return e.messages.Blocked
	case errors.Is(o.Err, ErrOutOfBounds):
		return e.messages.OutOfBounds
	case errors.Is(o.Err, ErrUnknownVehicle):
		return e.messages.UnknownVehicle
	case errors.Is(o.Err, ErrInvalidDisplacement):
		return e.messages.InvalidDisplacement
	}
	return o.Err.Error()
}

// addMoveToHistory appends to the cumulative history and the current segment
func (e *GameEngine) addMoveToHistory(vehicle string, displacement int, o MoveOutcome) {
	entry := MoveHistoryEntry{
		Vehicle:      vehicle,
		Displacement: displacement,
		From:         o.From,
		To:           o.To,
		Success:      o.Success,
		Error:        MoveErrorCode(o.Err),
		Timestamp:    time.Now().Unix(),
		MoveNumber:   len(e.history) + 1,
	}
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)
}

// CanMove checks if a vehicle can slide by displacement right now
func (e *GameEngine) CanMove(vehicle string, displacement int) bool {
	if e.IsGameOver() {
		return false
	}
	return e.lot.CanMove(vehicle, displacement)
}

// GetLegalMoves returns every vehicle's legal displacements; empty once the game is over
func (e *GameEngine) GetLegalMoves() map[string][]int {
	moves := e.lot.LegalMoves()
	if e.IsGameOver() {
		for id := range moves {
			moves[id] = []int{}
		}
	}
	return moves
}

// GetConfig returns the current puzzle configuration
func (e *GameEngine) GetConfig() *PuzzleConfig {
	return e.config
}

// SetConfig switches to a new puzzle and clears all history
func (e *GameEngine) SetConfig(config *PuzzleConfig) error {
	if err := ValidatePuzzleConfig(config); err != nil {
		return err
	}
	return e.load(config)
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return append([]MoveHistoryEntry{}, e.history...)
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

// Snapshot returns an independent copy of the current puzzle instance
func (e *GameEngine) Snapshot() *Lot {
	return e.lot.Clone()
}

// Step is one entry of a bulk move request
type Step struct {
	Vehicle      string `json:"vehicle"`
	Displacement int    `json:"displacement"`
}

// BulkMove executes moves in order and stops after the first failure or once the game is over
func (e *GameEngine) BulkMove(steps []Step) []MoveOutcome {
	results := make([]MoveOutcome, 0, len(steps))

	for _, s := range steps {
		if e.IsGameOver() {
			break
		}
		outcome := e.Move(s.Vehicle, s.Displacement)
		results = append(results, outcome)
		if !outcome.Success {
			break
		}
	}

	return results
}
