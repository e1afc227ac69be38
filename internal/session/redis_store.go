// Package session provides server-side session lookup for deployments where
// the identity gateway keeps session claims in Redis instead of handing the
// browser a self-contained token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docroom/api/internal/auth"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the session id is unknown or has expired.
var ErrNotFound = errors.New("session not found or expired")

// Record is the JSON document the gateway writes for each session.
type Record struct {
	Claims    map[string]any `json:"claims"`
	CreatedAt time.Time      `json:"created_at"`
}

// RedisStore reads session claims from Redis. Sessions are stored under
// prefix + sha256(session id) so raw ids never appear in the keyspace.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

// Key returns the Redis key holding the given session.
func (s *RedisStore) Key(sessionID string) string {
	return s.prefix + auth.HashToken(sessionID)
}

// Claims looks up the session and returns its claim bag.
func (s *RedisStore) Claims(ctx context.Context, sessionID string) (auth.Claims, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	raw, err := s.client.Get(ctx, s.Key(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	claims := auth.Claims(record.Claims)
	if claims.Subject() == "" {
		return nil, fmt.Errorf("session %s has no subject: %w", auth.HashToken(sessionID)[:12], ErrNotFound)
	}
	return claims, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
