package queries

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// ScopeCache stores user scopes between writes.
//
// Every invalidation moves the user's version on. A scope loaded after
// reading Version is only stored by SetIfVersion while that version is still
// current, so a load that raced with a committed write is never cached.
type ScopeCache interface {
	Get(ctx context.Context, userID uuid.UUID) (UserScope, bool, error)
	Version(ctx context.Context, userID uuid.UUID) (uint64, error)
	SetIfVersion(ctx context.Context, scope UserScope, version uint64) (bool, error)
}

// GetUserScopeHandler serves user scopes, from the cache when possible.
type GetUserScopeHandler struct {
	users   domain.UserRepository
	cache   ScopeCache
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewGetUserScopeHandler creates a new GetUserScopeHandler. cache may be nil.
func NewGetUserScopeHandler(users domain.UserRepository, cache ScopeCache, metrics observability.Metrics, logger *slog.Logger) *GetUserScopeHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetUserScopeHandler{users: users, cache: cache, metrics: metrics, logger: logger}
}

// Handle returns the scope of userID. Cache failures fall back to the user
// store.
func (h *GetUserScopeHandler) Handle(ctx context.Context, userID uuid.UUID) (UserScope, error) {
	ctx = observability.WithUserID(ctx, userID)
	cacheable := h.cache != nil
	var version uint64
	if cacheable {
		scope, ok, err := h.cache.Get(ctx, userID)
		switch {
		case err != nil:
			h.metrics.Counter(observability.MetricScopeCache, 1, observability.T("result", "error"))
			h.logger.WarnContext(ctx, "scope cache read failed", "error", err)
		case ok:
			h.metrics.Counter(observability.MetricScopeCache, 1, observability.T("result", "hit"))
			return scope, nil
		default:
			h.metrics.Counter(observability.MetricScopeCache, 1, observability.T("result", "miss"))
		}

		if version, err = h.cache.Version(ctx, userID); err != nil {
			h.logger.WarnContext(ctx, "scope cache version read failed", "error", err)
			cacheable = false
		}
	}

	u, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return UserScope{}, err
	}
	scope := ScopeOfUser(u)

	if cacheable {
		stored, err := h.cache.SetIfVersion(ctx, scope, version)
		switch {
		case err != nil:
			h.logger.WarnContext(ctx, "scope cache write failed", "error", err)
		case !stored:
			h.metrics.Counter(observability.MetricScopeCache, 1, observability.T("result", "superseded"))
			h.logger.DebugContext(ctx, "scope changed while loading, not cached")
		}
	}
	return scope, nil
}
