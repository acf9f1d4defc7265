// Package cache keeps user scopes close to the household-scoped readers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
)

// DefaultTTL bounds how long a missed invalidation can serve a stale scope.
const DefaultTTL = 5 * time.Minute

// setIfVersion writes KEYS[1] only while the version in KEYS[2] still equals
// ARGV[1]. A missing version counts as zero.
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisScopeCache stores one JSON scope per user under hearth:scope:{user_id}
// and an invalidation counter under hearth:scope-version:{user_id}.
type RedisScopeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScopeCache creates a cache over client.
func NewRedisScopeCache(client *redis.Client, ttl time.Duration) *RedisScopeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisScopeCache{client: client, ttl: ttl}
}

func scopeKey(userID uuid.UUID) string {
	return "hearth:scope:" + userID.String()
}

func versionKey(userID uuid.UUID) string {
	return "hearth:scope-version:" + userID.String()
}

// Get returns the cached scope and whether there was one.
func (c *RedisScopeCache) Get(ctx context.Context, userID uuid.UUID) (queries.UserScope, bool, error) {
	raw, err := c.client.Get(ctx, scopeKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return queries.UserScope{}, false, nil
	}
	if err != nil {
		return queries.UserScope{}, false, fmt.Errorf("get scope %s: %w", userID, err)
	}

	var scope queries.UserScope
	if err := json.Unmarshal(raw, &scope); err != nil {
		// Unreadable entries are treated as misses and overwritten.
		return queries.UserScope{}, false, nil
	}
	return scope, true, nil
}

// Version returns the invalidation counter of userID.
func (c *RedisScopeCache) Version(ctx context.Context, userID uuid.UUID) (uint64, error) {
	v, err := c.client.Get(ctx, versionKey(userID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get scope version %s: %w", userID, err)
	}
	return v, nil
}

// SetIfVersion stores scope with the cache TTL unless the user was
// invalidated after version was read.
func (c *RedisScopeCache) SetIfVersion(ctx context.Context, scope queries.UserScope, version uint64) (bool, error) {
	raw, err := json.Marshal(scope)
	if err != nil {
		return false, err
	}
	keys := []string{scopeKey(scope.UserID), versionKey(scope.UserID)}
	stored, err := setIfVersion.Run(ctx, c.client, keys, strconv.FormatUint(version, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("set scope %s: %w", scope.UserID, err)
	}
	return stored == 1, nil
}

// Invalidate deletes the scopes of userIDs and bumps their versions. Versions
// outlive cached scopes so a load that started before the bump cannot write.
func (c *RedisScopeCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Del(ctx, scopeKey(id))
			pipe.Incr(ctx, versionKey(id))
			pipe.PExpire(ctx, versionKey(id), 2*c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate scopes: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (c *RedisScopeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
