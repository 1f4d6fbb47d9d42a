package api

import (
	"encoding/json"
	"net/http"

	"github.com/avlogic/qsys-bridge/internal/control"
)

// getControlsRequest is the body of POST /controls/get.
type getControlsRequest struct {
	Controls []string `json:"controls"`
}

// setControlsRequest is the body of POST /controls/set.
//
// Validate defaults to true: each referenced control is checked for
// existence before anything is written. Callers on a hot path can set it
// to false and trade safety for one fewer round trip per component.
type setControlsRequest struct {
	Controls []setControlItem `json:"controls"`
	Validate *bool            `json:"validate,omitempty"`
}

type setControlItem struct {
	Name  string   `json:"name"`
	Value any      `json:"value"`
	Ramp  *float64 `json:"ramp,omitempty"`
}

// handleGetControls reads current values for a batch of controls.
func (s *Server) handleGetControls(w http.ResponseWriter, r *http.Request) {
	var req getControlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Controls) == 0 {
		writeBadRequest(w, "controls list is empty")
		return
	}

	refs, err := control.ParseReferences(req.Controls)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	values, err := s.controls.Get(r.Context(), refs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"controls": values})
}

// handleSetControls writes a batch of control values.
//
// The response always carries per-control outcomes; the HTTP status stays
// 200 unless every control in the batch failed.
func (s *Server) handleSetControls(w http.ResponseWriter, r *http.Request) {
	var req setControlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Controls) == 0 {
		writeBadRequest(w, "controls list is empty")
		return
	}

	reqs := make([]control.SetRequest, 0, len(req.Controls))
	for _, item := range req.Controls {
		ref, err := control.ParseReference(item.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		reqs = append(reqs, control.SetRequest{
			Reference: ref,
			Value:     item.Value,
			Ramp:      item.Ramp,
		})
	}

	opts := control.SetOptions{}
	if req.Validate != nil {
		opts.SkipValidation = !*req.Validate
	}

	result, err := s.controls.Set(r.Context(), reqs, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result.IsError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

// handleCoreStatus reports the Q-SYS core's engine status.
func (s *Server) handleCoreStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.controls.Status(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
