// Package cache fronts the sessions table with Redis.
//
// A live entry maps session:<token hash> to the owning account ID. Revoking
// a session overwrites the entry with a tombstone that lives until the token
// would have expired anyway. Entries are only ever created with SETNX, so a
// validation that raced with a logout can never bring a revoked session back.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"
	tombstone     = "revoked"
)

// State is the outcome of a cache lookup.
type State int

const (
	Miss State = iota
	Hit
	Revoked
)

// SessionCache is a Redis-backed session index. A nil *SessionCache or one
// built with a nil client is valid and always misses.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache wraps rdb. rdb may be nil.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func (c *SessionCache) enabled() bool { return c != nil && c.rdb != nil }

func key(hash string) string { return sessionPrefix + hash }

// Lookup returns the cached state for a token hash and, on a hit, the
// account ID it belongs to.
func (c *SessionCache) Lookup(ctx context.Context, hash string) (uint64, State, error) {
	if !c.enabled() {
		return 0, Miss, nil
	}
	v, err := c.rdb.Get(ctx, key(hash)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, Miss, nil
	}
	if err != nil {
		return 0, Miss, err
	}
	if v == tombstone {
		return 0, Revoked, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		// Unreadable entry: treat as a miss and let the store decide.
		return 0, Miss, nil
	}
	return id, Hit, nil
}

// Remember records a live session until expiresAt. An existing entry,
// including a tombstone, is left untouched.
func (c *SessionCache) Remember(ctx context.Context, hash string, accountID uint64, expiresAt time.Time) error {
	if !c.enabled() {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.rdb.SetNX(ctx, key(hash), strconv.FormatUint(accountID, 10), ttl).Err()
}

// Forget tombstones a session until expiresAt. Callers must not delete the
// stored session before Forget succeeds.
func (c *SessionCache) Forget(ctx context.Context, hash string, expiresAt time.Time) error {
	if !c.enabled() {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return c.rdb.Set(ctx, key(hash), tombstone, ttl).Err()
}

// Ping checks the Redis connection. A disabled cache is always healthy.
func (c *SessionCache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}
