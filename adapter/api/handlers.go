package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.OutboxStats != nil {
		stats := s.deps.OutboxStats()
		body["outbox"] = map[string]any{
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error_at":     stats.LastErrorAt,
			"last_error":        stats.LastError,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	health := s.deps.Health.Check(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleUserScope(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithUserID(r.Context(), userID))
	scope, err := s.deps.GetUserScope.Handle(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scope)
}

func (s *Server) handleUserMemberships(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithUserID(r.Context(), userID))
	memberships, err := s.deps.ListUserMemberships.Handle(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

func (s *Server) handleInvariant(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.pathID(w, r, "userID")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithUserID(r.Context(), userID))
	report, err := s.deps.CheckInvariant.Handle(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleHouseholdMembers accepts ?status=active,expired as a filter.
func (s *Server) handleHouseholdMembers(w http.ResponseWriter, r *http.Request) {
	householdID, ok := s.pathID(w, r, "householdID")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithHouseholdID(r.Context(), householdID))
	query := queries.ListHouseholdMembersQuery{HouseholdID: householdID}
	for _, v := range r.URL.Query()["status"] {
		for _, status := range strings.Split(v, ",") {
			if status = strings.TrimSpace(status); status != "" {
				query.Statuses = append(query.Statuses, status)
			}
		}
	}

	members, err := s.deps.ListHouseholdMembers.Handle(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: "bad_request", Message: "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
