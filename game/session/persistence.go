package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string            `json:"id"`
	ConfigID       string            `json:"config_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// encodeSession serializes a session for any storage backend
func encodeSession(session *service.Session, indent bool) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if session.Engine == nil {
		return nil, fmt.Errorf("session %s has no engine", session.ID)
	}

	configID := session.ConfigID
	if configID == "" && session.Config != nil {
		configID = session.Config.Name
	}

	data := PersistedSessionData{
		ID:             session.ID,
		ConfigID:       configID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
	}

	var (
		out []byte
		err error
	)
	if indent {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return out, nil
}

// decodeSession rebuilds a session: the puzzle is reloaded by config ID and
// the persisted anchors and history are replayed onto a fresh engine
func decodeSession(raw []byte, configs service.ConfigManager) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.GameState == nil {
		return nil, fmt.Errorf("session %s has no game state", data.ID)
	}

	puzzle, err := configs.LoadConfig(data.ConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", data.ConfigID, err)
	}

	gameEngine, err := engine.NewEngine(puzzle)
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := gameEngine.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigID,
		Engine:         gameEngine,
		Config:         puzzle,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
