// Package session keeps parking lot game sessions in memory and, optionally,
// in a persistent store.
//
// Manager is the thread-safe session registry. Session IDs are
// case-insensitive and stored lowercase; an empty ID gets a random
// 4-character hex identifier. IDs are limited to letters, digits, dashes and
// underscores so they can double as file names and Redis key suffixes.
//
// Persistence:
//
// SessionPersistence has two implementations. FilePersistence writes one
// JSON document per session into a directory. RedisPersistence stores the
// same document under a key prefix with an optional TTL. Both record the
// puzzle's config ID and the engine snapshot; on load the puzzle is reloaded
// through a service.ConfigManager and the vehicle anchors are replayed onto
// a fresh engine, so a snapshot that breaks an occupancy rule is rejected.
//
// Usage:
//
//	configs, _ := config.NewManager("configs")
//	store, _ := session.NewFilePersistence("sessions", configs)
//	manager := session.NewManagerWithPersistence(store)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", configs.DefaultID(), configs.GetDefault())
package session
