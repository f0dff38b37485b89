package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/parking-lot-game/game/service"
)

// DefaultRedisKeyPrefix namespaces session keys
const DefaultRedisKeyPrefix = "parking:session:"

// RedisPersistence implements SessionPersistence on a Redis keyspace.
// Every session is one JSON value under prefix+id; a zero TTL keeps keys forever.
type RedisPersistence struct {
	client        *redis.Client
	configManager service.ConfigManager
	prefix        string
	ttl           time.Duration
	timeout       time.Duration
}

// NewRedisPersistence initializes a RedisPersistence and pings the server
func NewRedisPersistence(client *redis.Client, configManager service.ConfigManager, prefix string, ttl time.Duration) (*RedisPersistence, error) {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	rp := &RedisPersistence{
		client:        client,
		configManager: configManager,
		prefix:        prefix,
		ttl:           ttl,
		timeout:       5 * time.Second,
	}

	ctx, cancel := rp.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return rp, nil
}

func (rp *RedisPersistence) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rp.timeout)
}

func (rp *RedisPersistence) key(id string) string {
	return rp.prefix + id
}

// Save persists a session and refreshes its TTL
func (rp *RedisPersistence) Save(session *service.Session) error {
	data, err := encodeSession(session, false)
	if err != nil {
		return err
	}

	ctx, cancel := rp.ctx()
	defer cancel()
	if err := rp.client.Set(ctx, rp.key(session.ID), data, rp.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session %s: %w", session.ID, err)
	}
	return nil
}

// Load retrieves a session by ID
func (rp *RedisPersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := rp.ctx()
	defer cancel()

	data, err := rp.client.Get(ctx, rp.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	return decodeSession(data, rp.configManager)
}

// Delete removes a session key
func (rp *RedisPersistence) Delete(id string) error {
	ctx, cancel := rp.ctx()
	defer cancel()

	n, err := rp.client.Del(ctx, rp.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll scans the prefix and returns the session IDs
func (rp *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := rp.ctx()
	defer cancel()

	var ids []string
	iter := rp.client.Scan(ctx, 0, rp.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), rp.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session key exists
func (rp *RedisPersistence) Exists(id string) bool {
	ctx, cancel := rp.ctx()
	defer cancel()
	return rp.client.Exists(ctx, rp.key(id)).Val() > 0
}
