package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avlogic/qsys-bridge/internal/changegroup"
	"github.com/avlogic/qsys-bridge/internal/eventcache"
)

// DefaultAutoPollSeconds is the auto-poll rate applied when a caller enables
// polling without specifying one. One second suits dashboards; latency-bound
// callers pass an explicit rate down to 0.03s.
const DefaultAutoPollSeconds = 1.0

// createGroupRequest is the body of POST /groups.
type createGroupRequest struct {
	ID string `json:"id"`
}

// groupControlsRequest is the body of POST and DELETE /groups/{id}/controls.
type groupControlsRequest struct {
	Controls []string `json:"controls"`
}

// autoPollRequest is the body of PUT /groups/{id}/autopoll. A pointer
// distinguishes an omitted rate (default applies) from an explicit zero
// (out of range).
type autoPollRequest struct {
	RateSeconds *float64 `json:"rate_seconds,omitempty"`
}

// cachePolicyRequest is the body of PUT /groups/{id}/cache-policy.
// Omitted fields keep the current policy's value.
type cachePolicyRequest struct {
	MaxAgeMS  *int64  `json:"max_age_ms,omitempty"`
	MaxEvents *int    `json:"max_events,omitempty"`
	Priority  *string `json:"priority,omitempty"`
}

// handleListGroups returns a summary of every change group.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": s.groups.List()})
}

// handleCreateGroup registers a new change group. Creating an existing group
// succeeds and carries a warning instead of failing, so retried setup
// scripts stay idempotent.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ID == "" {
		writeBadRequest(w, "group id is required")
		return
	}

	warning, err := s.groups.Create(req.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{"id": req.ID}
	status := http.StatusCreated
	if warning != "" {
		resp["warning"] = warning
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// handleGetGroup returns one group's membership and poll state.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	controls, err := s.groups.Controls(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            id,
		"controls":      controls,
		"has_auto_poll": s.groups.HasAutoPoll(id),
		"cached_events": s.events.GroupSize(id),
		"poll_failures": s.groups.ConsecutiveFailures(id),
	})
}

// handleDestroyGroup destroys a group on the core and locally.
func (s *Server) handleDestroyGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Destroy(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destroyed": true})
}

// handleAddControls adds controls to a group, creating it if needed.
func (s *Server) handleAddControls(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req groupControlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Controls) == 0 {
		writeBadRequest(w, "controls list is empty")
		return
	}

	if err := s.groups.AddControls(r.Context(), id, req.Controls); err != nil {
		writeDomainError(w, err)
		return
	}

	controls, err := s.groups.Controls(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "controls": controls})
}

// handleRemoveControls removes controls from a group.
func (s *Server) handleRemoveControls(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req groupControlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.groups.RemoveControls(r.Context(), id, req.Controls); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": true})
}

// handleClearGroup empties a group's membership.
func (s *Server) handleClearGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// handlePollGroup performs one manual poll and returns the changes.
func (s *Server) handlePollGroup(w http.ResponseWriter, r *http.Request) {
	entries, err := s.groups.PollOnce(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": entries})
}

// handleSetAutoPoll enables or retunes a group's auto-poll loop.
// An omitted rate selects DefaultAutoPollSeconds; an explicit zero is
// rejected as out of range.
func (s *Server) handleSetAutoPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req autoPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	rate := DefaultAutoPollSeconds
	if req.RateSeconds != nil {
		rate = *req.RateSeconds
		if rate == 0 {
			writeDomainError(w, &changegroup.RateOutOfRangeError{RateSeconds: 0})
			return
		}
	}

	if err := s.groups.SetAutoPoll(id, rate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "rate_seconds": rate})
}

// handleClearAutoPoll disables a group's auto-poll loop.
func (s *Server) handleClearAutoPoll(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.ClearAutoPoll(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// handleQueryEvents returns a group's cached changes inside an inclusive
// time range. start and end are RFC3339 timestamps; either may be omitted
// for an open bound. timeout_ms overrides the configured query timeout.
func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil {
		writeBadRequest(w, "start must be RFC3339")
		return
	}
	end, err := parseTimeParam(r.URL.Query().Get("end"))
	if err != nil {
		writeBadRequest(w, "end must be RFC3339")
		return
	}

	var timeout time.Duration
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			writeBadRequest(w, "timeout_ms must be a positive integer")
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	entries, err := s.events.Query(r.Context(), id, start, end, timeout)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "events": entries})
}

// handleGetCachePolicy returns a group's current retention policy.
func (s *Server) handleGetCachePolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	policy := s.events.Policy(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"max_age_ms": policy.MaxAge.Milliseconds(),
		"max_events": policy.MaxEvents,
		"priority":   policy.Priority.String(),
	})
}

// handleSetCachePolicy updates a group's retention policy. Fields not in
// the body keep their current value.
func (s *Server) handleSetCachePolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req cachePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	policy := s.events.Policy(id)
	if req.MaxAgeMS != nil {
		policy.MaxAge = time.Duration(*req.MaxAgeMS) * time.Millisecond
	}
	if req.MaxEvents != nil {
		policy.MaxEvents = *req.MaxEvents
	}
	if req.Priority != nil {
		p, err := eventcache.ParsePriority(*req.Priority)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		policy.Priority = p
	}

	s.events.SetPolicy(id, policy)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"max_age_ms": policy.MaxAge.Milliseconds(),
		"max_events": policy.MaxEvents,
		"priority":   policy.Priority.String(),
	})
}

// parseTimeParam parses an optional RFC3339 query parameter.
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
