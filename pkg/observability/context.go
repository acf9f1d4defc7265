package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context keys for observability data.
type contextKey string

const (
	correlationIDCtxKey contextKey = "correlation_id"
	requestIDCtxKey     contextKey = "request_id"
)

// Standard attribute keys used in logs and metrics.
const (
	CorrelationIDKey = "correlation_id"
	RequestIDKey     = "request_id"
	UserIDKey        = "user_id"
	HouseholdIDKey   = "household_id"
	MembershipIDKey  = "membership_id"
	OperationKey     = "operation"
	DurationKey      = "duration_ms"
	ErrorKey         = "error"
	StatusKey        = "status"
)

// WithCorrelationID adds a correlation ID to the context.
// If id is empty, a new UUID is generated.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, correlationIDCtxKey, id)
}

// CorrelationIDFromContext extracts the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDCtxKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID adds a request ID to the context.
// If id is empty, a new UUID is generated.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, requestIDCtxKey, id)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return id
	}
	return ""
}

type subjectCtxKey struct{}

// subject holds the ids a unit of work concerns.
type subject struct {
	userID       uuid.UUID
	householdID  uuid.UUID
	membershipID uuid.UUID
}

func withSubject(ctx context.Context, set func(*subject)) context.Context {
	s, _ := ctx.Value(subjectCtxKey{}).(subject)
	set(&s)
	return context.WithValue(ctx, subjectCtxKey{}, s)
}

// WithUserID tags records logged with ctx with the user's id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return withSubject(ctx, func(s *subject) { s.userID = id })
}

// WithHouseholdID tags records logged with ctx with the household's id.
func WithHouseholdID(ctx context.Context, id uuid.UUID) context.Context {
	return withSubject(ctx, func(s *subject) { s.householdID = id })
}

// WithMembershipID tags records logged with ctx with the membership's id.
func WithMembershipID(ctx context.Context, id uuid.UUID) context.Context {
	return withSubject(ctx, func(s *subject) { s.membershipID = id })
}

// ContextAttrs returns the log attributes carried by ctx. Unset ids are
// omitted.
func ContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String(CorrelationIDKey, id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String(RequestIDKey, id))
	}
	s, ok := ctx.Value(subjectCtxKey{}).(subject)
	if !ok {
		return attrs
	}
	for _, a := range []struct {
		key string
		id  uuid.UUID
	}{
		{UserIDKey, s.userID},
		{HouseholdIDKey, s.householdID},
		{MembershipIDKey, s.membershipID},
	} {
		if a.id != uuid.Nil {
			attrs = append(attrs, slog.String(a.key, a.id.String()))
		}
	}
	return attrs
}
