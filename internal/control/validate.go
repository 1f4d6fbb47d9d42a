package control

import (
	"context"
	"encoding/json"
	"fmt"
)

// ValidationEngine performs optional pre-flight existence checks before a
// write. It classifies failures (component missing vs control missing)
// independently of the write call itself, so callers get precise messages
// instead of the core's terse write errors.
//
// Callers that opt out of validation skip this entirely; the wire call is
// then the only source of truth.
type ValidationEngine struct {
	transport Transport
}

// NewValidationEngine creates a validation engine over the given transport.
func NewValidationEngine(transport Transport) *ValidationEngine {
	return &ValidationEngine{transport: transport}
}

// Validate checks that every referenced component and control exists.
//
// For component references, one existence query is issued per distinct
// component (Component.GetControls), then each requested control is checked
// against the returned control list. For named references, one existence
// query is issued per control (Control.Get).
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - refs: Resolved references to check
//
// Returns:
//   - map[string]string: Failure message keyed by full control name.
//     Controls absent from the map passed validation.
func (e *ValidationEngine) Validate(ctx context.Context, refs []Reference) map[string]string {
	failures := make(map[string]string)

	named, batches := GroupByComponent(refs)

	for _, batch := range batches {
		e.validateComponent(ctx, batch, failures)
	}
	for _, ref := range named {
		e.validateNamed(ctx, ref, failures)
	}

	return failures
}

// validateComponent checks one component's requested controls against the
// core's control list for that component.
func (e *ValidationEngine) validateComponent(ctx context.Context, batch ComponentBatch, failures map[string]string) {
	raw, err := e.transport.Send(ctx, "Component.GetControls", map[string]any{
		"Name": batch.Component,
	})
	if err != nil {
		// The component itself failed to resolve: every control under it
		// inherits the failure.
		for _, ref := range batch.References {
			failures[ref.String()] = "Component not found"
		}
		return
	}

	var listing struct {
		Name     string `json:"Name"`
		Controls []struct {
			Name string `json:"Name"`
		} `json:"Controls"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		for _, ref := range batch.References {
			failures[ref.String()] = MsgUnexpectedResponse
		}
		return
	}

	known := make(map[string]struct{}, len(listing.Controls))
	for _, c := range listing.Controls {
		known[c.Name] = struct{}{}
	}

	for _, ref := range batch.References {
		if _, ok := known[ref.Control]; !ok {
			failures[ref.String()] = fmt.Sprintf(
				"Control '%s' not found on component '%s'", ref.Control, ref.Component)
		}
	}
}

// validateNamed checks a single global named control.
func (e *ValidationEngine) validateNamed(ctx context.Context, ref Reference, failures map[string]string) {
	if _, err := e.transport.Send(ctx, "Control.Get", []string{ref.Name}); err != nil {
		failures[ref.String()] = fmt.Sprintf("Named control '%s' not found", ref.Name)
	}
}
