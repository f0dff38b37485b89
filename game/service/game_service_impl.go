package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/gym"
)

var (
	ErrConfigUnavailable = errors.New("config not available")
	ErrSessionNotFound   = errors.New("session not found")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      logrus.FieldLogger

	// mu guards every engine and the session timestamps. Paths that touch a
	// session, and so write LastAccessedAt, take the write lock.
	mu sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return NewGameServiceWithLogger(sessions, configs, logrus.StandardLogger())
}

// NewGameServiceWithLogger creates a game service that logs through log
func NewGameServiceWithLogger(sessions SessionManager, configs ConfigManager, log logrus.FieldLogger) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      log,
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.PuzzleConfig
	configID := configName
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			available, listErr := s.configs.ListConfigs()
			if listErr == nil && len(available) > 0 {
				ids := make([]string, 0, len(available))
				for _, cfg := range available {
					ids = append(ids, cfg.ConfigID)
				}
				return nil, fmt.Errorf("%w: '%s' (%v). Available configs: %v", ErrConfigUnavailable, configName, err, ids)
			}
			return nil, fmt.Errorf("%w: '%s' (%v). Use /api/configs to list available configurations", ErrConfigUnavailable, configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.DefaultID()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.WithFields(logrus.Fields{"session": sess.ID, "config": configID}).Info("session created")
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}

	s.touch(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions ordered by creation time
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return sessionErr(err)
	}
	s.log.WithField("session", sessionID).Info("session deleted")
	return nil
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, vehicle string, displacement int, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}
	s.touch(sessionID)

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	out := sess.Engine.Move(vehicle, displacement)
	state := sess.Engine.GetState()

	result := &MoveResult{
		Success:   out.Success,
		GameState: state,
		Message:   out.Message,
		Error:     engine.MoveErrorCode(out.Err),
		Events:    append(events, moveEvents(vehicle, displacement, out)...),
	}
	if out.Success {
		result.Step = &StepInfo{
			Idx:          1,
			Vehicle:      vehicle,
			Displacement: displacement,
			From:         out.From,
			To:           out.To,
			Success:      true,
			Solved:       out.Solved,
		}
	} else {
		result.Offending = offendingCell(sess.Engine.Snapshot(), out.Err)
	}

	s.log.WithFields(logrus.Fields{
		"session":      sessionID,
		"vehicle":      vehicle,
		"displacement": displacement,
		"success":      out.Success,
		"error":        result.Error,
	}).Debug("move")

	s.persist(sessionID, "move")
	return result, nil
}

// BulkMove executes moves in order, stopping at the first rejected move
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, steps []engine.Step, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}
	s.touch(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(steps),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	// Limit moves to prevent abuse
	if len(steps) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		steps = steps[:engine.MaxBulkMoves]
	}

	for i, step := range steps {
		if ctx.Err() != nil {
			break
		}
		if sess.Engine.IsGameOver() {
			result.StopReasonCode = StopGameOver
			if sess.Engine.IsSolved() {
				result.StopReasonCode = StopSolved
			}
			result.StoppedReason = fmt.Sprintf("game already over before move %d", i+1)
			result.StoppedOnMove = i + 1
			break
		}

		out := sess.Engine.Move(step.Vehicle, step.Displacement)
		result.Events = append(result.Events, moveEvents(step.Vehicle, step.Displacement, out)...)

		if !out.Success {
			result.Success = false
			result.StopReasonCode = engine.MoveErrorCode(out.Err)
			result.StoppedReason = fmt.Sprintf("move %d rejected: %v", i+1, out.Err)
			result.StoppedOnMove = i + 1
			result.Offending = offendingCell(sess.Engine.Snapshot(), out.Err)
			break
		}

		result.MovesExecuted++
		result.Steps = append(result.Steps, StepInfo{
			Idx:          i + 1,
			Vehicle:      step.Vehicle,
			Displacement: step.Displacement,
			From:         out.From,
			To:           out.To,
			Success:      true,
			Solved:       out.Solved,
		})
	}

	state := sess.Engine.GetState()
	result.GameState = state
	result.Solved = state.Solved
	result.GameOver = state.GameOver
	result.Message = state.Message
	result.LegalMoves = sess.Engine.GetLegalMoves()

	// Ended by the last executed move
	if result.StopReasonCode == "" && state.GameOver {
		result.StopReasonCode = StopGameOver
		if state.Solved {
			result.StopReasonCode = StopSolved
		}
	}

	s.log.WithFields(logrus.Fields{
		"session":  sessionID,
		"executed": result.MovesExecuted,
		"stop":     result.StopReasonCode,
	}).Debug("bulk move")

	s.persist(sessionID, "bulk move")
	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}

	s.touch(sessionID)
	state := sess.Engine.Reset()
	s.persist(sessionID, "reset")
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}

	s.touch(sessionID)
	return sess.Engine.GetState(), nil
}

// GetLegalMoves lists the legal displacements of every vehicle
func (s *gameServiceImpl) GetLegalMoves(ctx context.Context, sessionID string) (*LegalMovesResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}

	moves := sess.Engine.GetLegalMoves()
	resp := &LegalMovesResponse{
		SessionID:  sess.ID,
		LegalMoves: moves,
		Movable:    []string{},
		Solved:     sess.Engine.IsSolved(),
		GameOver:   sess.Engine.IsGameOver(),
	}
	for _, id := range sess.Engine.Snapshot().VehicleIDs() {
		if len(moves[id]) > 0 {
			resp.Movable = append(resp.Movable, id)
			resp.Count += len(moves[id])
		}
	}
	return resp, nil
}

// GetObservation encodes the current grid the way the gym environment does
func (s *gameServiceImpl) GetObservation(ctx context.Context, sessionID string) (*ObservationResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}

	lot := sess.Engine.Snapshot()
	env := gym.NewEnvFromLot(lot)
	w, h := lot.Dimensions()
	return &ObservationResponse{
		SessionID:   sess.ID,
		VehicleIDs:  env.VehicleIDs(),
		Observation: gym.Encode(lot),
		High:        env.ObservationHigh(),
		Width:       w,
		Height:      h,
		Solved:      lot.IsSolved(),
	}, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, sessionErr(err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available puzzle configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific puzzle configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.PuzzleConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a puzzle configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.PuzzleConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.log.WithError(err).WithField("session", sessionID).Warn("failed to update last access")
	}
}

func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"session": sessionID, "after": after}).Warn("failed to persist session")
	}
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}

// moveEvents generates events from a move outcome
func moveEvents(vehicle string, displacement int, out engine.MoveOutcome) []GameEvent {
	now := time.Now()
	if !out.Success {
		return []GameEvent{{
			Type:      "invalid_move",
			Message:   fmt.Sprintf("Cannot move %s by %d: %s", vehicle, displacement, engine.MoveErrorCode(out.Err)),
			Timestamp: now,
			Vehicle:   vehicle,
			Position:  out.From,
		}}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %s by %d to (%d,%d)", vehicle, displacement, out.To.X, out.To.Y),
		Timestamp: now,
		Vehicle:   vehicle,
		Position:  out.To,
	}}
	switch {
	case out.Solved:
		events = append(events, GameEvent{Type: "solved", Message: out.Message, Timestamp: now, Vehicle: vehicle})
	case out.GameOver:
		events = append(events, GameEvent{Type: "game_over", Message: out.Message, Timestamp: now})
	}
	return events
}

// offendingCell describes the cell named by a bounds or collision error
func offendingCell(lot *engine.Lot, err error) *CellInfo {
	var me *engine.MoveError
	if !errors.As(err, &me) || me.Cell == nil {
		return nil
	}
	info := &CellInfo{X: me.Cell.X, Y: me.Cell.Y, Kind: "boundary"}
	if cell, cerr := lot.CellAt(me.Cell.X, me.Cell.Y); cerr == nil {
		info.Kind = string(cell.Kind)
		info.Vehicle = cell.Vehicle
	}
	return info
}

// sessionErr makes lookup failures match ErrSessionNotFound
func sessionErr(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSessionNotFound, err)
}
