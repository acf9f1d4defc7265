package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
)

// DefaultSize caps the number of users the in-memory cache holds.
const DefaultSize = 10_000

// entry is a cached scope or, after an invalidation, a tombstone carrying
// only the new version.
type entry struct {
	scope   queries.UserScope
	version uint64
	live    bool
}

// InMemoryScopeCache is the process-local cache used when Redis is not
// configured. Entries expire after the TTL and the least recently used ones
// are evicted beyond the size limit.
type InMemoryScopeCache struct {
	mu       sync.Mutex
	entries  *expirable.LRU[uuid.UUID, entry]
	versions atomic.Uint64
}

// NewInMemoryScopeCache creates an empty cache holding at most size users.
func NewInMemoryScopeCache(ttl time.Duration, size int) *InMemoryScopeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &InMemoryScopeCache{entries: expirable.NewLRU[uuid.UUID, entry](size, nil, ttl)}
}

// Get returns the cached scope and whether there was a live one.
func (c *InMemoryScopeCache) Get(_ context.Context, userID uuid.UUID) (queries.UserScope, bool, error) {
	e, ok := c.entries.Get(userID)
	if !ok || !e.live {
		return queries.UserScope{}, false, nil
	}
	return e.scope, true, nil
}

// Version returns the invalidation version of userID, zero when none is
// remembered.
func (c *InMemoryScopeCache) Version(_ context.Context, userID uuid.UUID) (uint64, error) {
	e, _ := c.entries.Peek(userID)
	return e.version, nil
}

// SetIfVersion stores scope unless the user was invalidated after version
// was read.
func (c *InMemoryScopeCache) SetIfVersion(_ context.Context, scope queries.UserScope, version uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, _ := c.entries.Peek(scope.UserID)
	if current.version != version {
		return false, nil
	}
	c.entries.Add(scope.UserID, entry{scope: scope, version: version, live: true})
	return true, nil
}

// Invalidate drops the scopes of userIDs and moves their versions on.
func (c *InMemoryScopeCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.entries.Add(id, entry{version: c.versions.Add(1)})
	}
	return nil
}

// Len returns the number of stored entries, tombstones included.
func (c *InMemoryScopeCache) Len() int {
	return c.entries.Len()
}
