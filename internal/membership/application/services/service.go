// Package services implements the write side of household membership:
// creating and ending memberships, primary assignment and the scope mirror
// kept on the user record.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// ScopeInvalidator drops cached user scopes. It is called after a write
// that may have changed them has committed.
type ScopeInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...uuid.UUID) error { return nil }

// Deps are the collaborators of a Service. Stores and UnitOfWork are
// required; the rest default to no-op implementations.
type Deps struct {
	Memberships domain.MembershipRepository
	Users       domain.UserRepository
	Households  domain.HouseholdRepository
	UnitOfWork  sharedApplication.UnitOfWork
	Events      sharedApplication.EventSink
	Cache       ScopeInvalidator
	Clock       sharedDomain.Clock
	Logger      *slog.Logger
	Metrics     observability.Metrics
}

// Service runs every membership write in one unit of work.
type Service struct {
	memberships domain.MembershipRepository
	users       domain.UserRepository
	households  domain.HouseholdRepository
	uow         sharedApplication.UnitOfWork
	events      sharedApplication.EventSink
	cache       ScopeInvalidator
	clock       sharedDomain.Clock
	logger      *slog.Logger
	metrics     observability.Metrics
	sync        *Sync
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Events == nil {
		d.Events = sharedApplication.DiscardEvents{}
	}
	if d.Cache == nil {
		d.Cache = noopInvalidator{}
	}
	if d.Clock == nil {
		d.Clock = sharedDomain.SystemClock
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NoopMetrics{}
	}

	return &Service{
		memberships: d.Memberships,
		users:       d.Users,
		households:  d.Households,
		uow:         d.UnitOfWork,
		events:      d.Events,
		cache:       d.Cache,
		clock:       d.Clock,
		logger:      d.Logger.With("component", "membership"),
		metrics:     d.Metrics,
		sync:        NewSync(d.Users, d.Memberships, d.Clock),
	}
}

// Sync returns the scope mirror used by the service.
func (s *Service) Sync() *Sync { return s.sync }

// observe wraps one public operation in a span and a timer. Every event
// recorded during the operation shares one correlation id.
func (s *Service) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if observability.CorrelationIDFromContext(ctx) == "" {
		ctx = observability.WithCorrelationID(ctx, uuid.NewString())
	}
	ctx, span := observability.StartSpan(ctx, "membership."+operation)
	timer := observability.StartTimer(operation).WithLogger(s.logger).WithMetrics(s.metrics)

	err := fn(ctx)

	timer.StopWithError(err)
	if domain.IsConflict(err) {
		s.metrics.Counter(observability.MetricAssignmentConflicts, 1, observability.T(observability.OperationKey, operation))
		s.logger.WarnContext(ctx, "primary assignment conflict", observability.OperationKey, operation, "error", err)
	}
	observability.EndSpan(span, err)
	return err
}

type eventSource interface {
	PullDomainEvents() []sharedDomain.DomainEvent
}

// emit moves the events recorded on each aggregate into the sink.
func (s *Service) emit(ctx context.Context, sources ...eventSource) error {
	var events []sharedDomain.DomainEvent
	for _, src := range sources {
		events = append(events, src.PullDomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}

	actor := sharedApplication.ActorFromContext(ctx)
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, actor))
	if err := s.events.Append(ctx, events...); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

// invalidate drops cached scopes. Failures only delay freshness until the
// cache entry expires, so they are logged and not returned.
func (s *Service) invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.WarnContext(ctx, "scope cache invalidation failed", "error", err)
	}
}

func findMembership(ms []*domain.Membership, id uuid.UUID) *domain.Membership {
	for _, m := range ms {
		if m.ID() == id {
			return m
		}
	}
	return nil
}
