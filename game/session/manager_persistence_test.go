package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/parking-lot-game/game/service"
)

// failingStore rejects every write and remembers how often it was asked
type failingStore struct {
	SessionPersistence
	saves int
}

func (s *failingStore) Save(*service.Session) error {
	s.saves++
	return errors.New("disk full")
}

func TestManagerWritesThroughToFiles(t *testing.T) {
	dir := t.TempDir()
	configs := newTestConfigManager(t)
	store, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	m := NewManagerWithPersistence(store)
	sess, err := m.Create("Garage", configs.DefaultID(), configs.GetDefault())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "garage.json"))

	// the engine is mutated by the service; Save makes it durable
	require.True(t, sess.Engine.Move("E", -2).Success)
	require.False(t, sess.Engine.Move("A", 1).Success)
	require.NoError(t, m.Save("garage"))

	restarted := NewManagerWithPersistence(store)
	assert.Equal(t, 0, restarted.Count())

	loaded, err := restarted.Get("GARAGE")
	require.NoError(t, err)
	state := loaded.Engine.GetState()
	assert.Equal(t, "EE..FF", state.Rows[3])
	assert.Equal(t, 1, state.Moves)
	assert.Len(t, loaded.Engine.GetMoveHistory(), 2)
	assert.Equal(t, 1, restarted.Count(), "a lazily loaded session stays in memory")

	again, err := restarted.Get("garage")
	require.NoError(t, err)
	assert.Same(t, loaded, again)
}

func TestManagerLoadPersistedSessions(t *testing.T) {
	dir := t.TempDir()
	configs := newTestConfigManager(t)
	store, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	first := NewManagerWithPersistence(store)
	for _, id := range []string{"one", "two", "three"} {
		_, err := first.Create(id, configs.DefaultID(), configs.GetDefault())
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0644))

	restarted := NewManagerWithPersistence(store)
	require.NoError(t, restarted.LoadPersistedSessions())
	assert.Equal(t, 3, restarted.Count(), "unreadable files are skipped")

	// loading twice keeps the in-memory copies
	one, err := restarted.Get("one")
	require.NoError(t, err)
	require.NoError(t, restarted.LoadPersistedSessions())
	again, err := restarted.Get("one")
	require.NoError(t, err)
	assert.Same(t, one, again)
}

func TestManagerDeleteWithStore(t *testing.T) {
	dir := t.TempDir()
	configs := newTestConfigManager(t)
	store, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)
	m := NewManagerWithPersistence(store)

	_, err = m.Create("gone", configs.DefaultID(), configs.GetDefault())
	require.NoError(t, err)

	t.Run("memory eviction keeps the file", func(t *testing.T) {
		require.NoError(t, m.DeleteFromMemory("gone"))
		assert.True(t, store.Exists("gone"))
		_, err := m.Get("gone")
		assert.NoError(t, err, "evicted sessions reload from the store")
	})

	t.Run("delete removes both copies", func(t *testing.T) {
		require.NoError(t, m.Delete("GONE"))
		assert.False(t, store.Exists("gone"))
		_, err := m.Get("gone")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("stored-only session can be deleted", func(t *testing.T) {
		other := NewManagerWithPersistence(store)
		_, err := m.Create("stored", configs.DefaultID(), configs.GetDefault())
		require.NoError(t, err)
		assert.NoError(t, other.Delete("stored"))
		assert.False(t, store.Exists("stored"))
	})
}

func TestManagerUpdateLastAccessedPersists(t *testing.T) {
	dir := t.TempDir()
	configs := newTestConfigManager(t)
	store, err := NewFilePersistence(dir, configs)
	require.NoError(t, err)

	m, clock := newClockedManager()
	m.store = store

	_, err = m.Create("clock", configs.DefaultID(), configs.GetDefault())
	require.NoError(t, err)
	clock.Advance(time.Hour)
	require.NoError(t, m.UpdateLastAccessed("clock"))

	loaded, err := store.Load("clock")
	require.NoError(t, err)
	assert.True(t, loaded.LastAccessedAt.Equal(clock.Now()))
	assert.True(t, loaded.CreatedAt.Equal(clock.Now().Add(-time.Hour)))
}

func TestManagerStoreFailures(t *testing.T) {
	store := &failingStore{}
	m := NewManagerWithPersistence(store)

	// write-through failures never fail the caller
	_, err := m.Create("fragile", "classic", classicPuzzle())
	require.NoError(t, err)
	require.NoError(t, m.UpdateLastAccessed("fragile"))
	assert.Equal(t, 2, store.saves)

	// explicit saves report them
	assert.Error(t, m.Save("fragile"))
	err = m.SaveAllSessions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session fragile")
}
