package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

const maxSessionIDLength = 64

// Manager is the registry of live puzzle sessions. Each session owns one
// engine; the manager only guards the registry, never the engines.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
	store    SessionPersistence
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewManager creates an in-memory session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		log:      logrus.WithField("component", "session"),
		now:      time.Now,
	}
}

// NewManagerWithPersistence creates a session manager that writes through to store
func NewManagerWithPersistence(store SessionPersistence) *Manager {
	m := NewManager()
	m.store = store
	return m
}

// normalizeID maps an ID onto its registry key
func normalizeID(id string) string {
	return strings.ToLower(id)
}

// validSessionID accepts 1 to 64 letters, digits, dashes and underscores
func validSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// newSessionID draws random 4-hex-digit IDs until one is free.
// The write lock must be held.
func (m *Manager) newSessionID() string {
	buf := make([]byte, 2)
	for {
		rand.Read(buf)
		if id := hex.EncodeToString(buf); m.sessions[id] == nil {
			return id
		}
	}
}

// persist writes sess through to the store; failures are logged, not returned
func (m *Manager) persist(sess *service.Session, reason string) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(sess); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"session": sess.ID,
			"reason":  reason,
		}).Warn("failed to persist session")
	}
}

// Create starts a new session on puzzle. An empty id gets a generated one;
// an empty configID falls back to the puzzle name.
func (m *Manager) Create(id, configID string, puzzle *engine.PuzzleConfig) (*service.Session, error) {
	if id != "" && !validSessionID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	eng, err := engine.NewEngine(puzzle)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if configID == "" {
		configID = puzzle.Name
	}

	m.mu.Lock()
	key := normalizeID(id)
	if key == "" {
		key = m.newSessionID()
	} else if m.sessions[key] != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrSessionAlreadyExists, key)
	}

	now := m.now()
	sess := &service.Session{
		ID:             key,
		ConfigID:       configID,
		Engine:         eng,
		Config:         puzzle,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[key] = sess
	m.mu.Unlock()

	m.persist(sess, "create")
	return sess, nil
}

// Get returns the session with id, loading it from the store on a memory miss
func (m *Manager) Get(id string) (*service.Session, error) {
	key := normalizeID(id)

	m.mu.RLock()
	sess := m.sessions[key]
	m.mu.RUnlock()
	if sess != nil {
		return sess, nil
	}

	if m.store == nil || !validSessionID(key) || !m.store.Exists(key) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.store.Load(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have loaded it meanwhile; keep the first copy
	if existing := m.sessions[key]; existing != nil {
		return existing, nil
	}
	m.sessions[key] = loaded
	return loaded, nil
}

// GetOrCreate returns the session with id, creating it on puzzle when missing
func (m *Manager) GetOrCreate(id, configID string, puzzle *engine.PuzzleConfig) (*service.Session, error) {
	sess, err := m.Get(id)
	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, puzzle)
	}
	return sess, err
}

// List returns the in-memory sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	out := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a session from memory and from the store
func (m *Manager) Delete(id string) error {
	key := normalizeID(id)

	m.mu.Lock()
	_, inMemory := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if m.store != nil && validSessionID(key) && m.store.Exists(key) {
		if err := m.store.Delete(key); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory evicts a session but leaves the store untouched
func (m *Manager) DeleteFromMemory(id string) error {
	key := normalizeID(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed stamps the session as used now and writes it through.
// The write-through reads the session outside the manager lock, so callers
// that share a session across goroutines serialize around it.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	sess := m.sessions[normalizeID(id)]
	if sess == nil {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = m.now()
	m.mu.Unlock()

	m.persist(sess, "access")
	return nil
}

// Save writes one in-memory session to the store
func (m *Manager) Save(id string) error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	sess := m.sessions[normalizeID(id)]
	m.mu.RUnlock()
	if sess == nil {
		return ErrSessionNotFound
	}
	return m.store.Save(sess)
}

// CleanupExpiredSessions evicts sessions idle for longer than maxAge and
// returns how many were evicted. Stored copies are left to the store's own expiry.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, sess := range m.sessions {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions pulls every stored session that is not yet in memory.
// Sessions that fail to decode are logged and skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.store == nil {
		return nil
	}

	ids, err := m.store.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		key := normalizeID(id)

		m.mu.RLock()
		present := m.sessions[key] != nil
		m.mu.RUnlock()
		if present {
			continue
		}

		sess, err := m.store.Load(id)
		if err != nil {
			m.log.WithError(err).WithField("session", id).Warn("skipping unreadable persisted session")
			continue
		}

		m.mu.Lock()
		if m.sessions[key] == nil {
			m.sessions[key] = sess
			loaded++
		}
		m.mu.Unlock()
	}

	if loaded > 0 {
		m.log.WithField("count", loaded).Info("loaded persisted sessions")
	}
	return nil
}

// SaveAllSessions writes every in-memory session to the store
func (m *Manager) SaveAllSessions() error {
	if m.store == nil {
		return nil
	}

	var errs []error
	for _, sess := range m.List() {
		if err := m.store.Save(sess); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
		}
	}
	return errors.Join(errs...)
}
