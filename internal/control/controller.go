package control

import (
	"context"
	"encoding/json"
	"fmt"
)

// Controller orchestrates one-shot control reads and writes: it batches
// references per component, coerces values at the boundary, runs optional
// pre-flight validation, issues the QRC calls, and normalises per-control
// outcomes.
//
// Thread Safety: all methods are safe for concurrent use; the controller
// holds no mutable state of its own.
type Controller struct {
	transport Transport
	validator *ValidationEngine
	logger    Logger
}

// NewController creates a controller over the given transport.
func NewController(transport Transport) *Controller {
	return &Controller{
		transport: transport,
		validator: NewValidationEngine(transport),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetOptions configures a write batch.
type SetOptions struct {
	// SkipValidation disables the pre-flight existence check. The wire
	// call becomes the only source of truth for failures.
	SkipValidation bool
}

// Set writes one or more control values.
//
// Values are coerced to the wire representation once, here. Controls that
// fail pre-validation are excluded from the wire batch and short-circuit to
// failed outcomes. Component references sharing a component travel in one
// Component.Set call; named references are set individually via Control.Set.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - reqs: The requested writes
//   - opts: Batch options
//
// Returns:
//   - BatchResult: Per-control outcomes; IsError is true iff all failed
//   - error: ErrEmptyBatch for an empty request; per-control failures are
//     data, not errors
func (c *Controller) Set(ctx context.Context, reqs []SetRequest, opts SetOptions) (BatchResult, error) {
	if len(reqs) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}

	var result BatchResult

	// Pre-flight validation (unless the caller opted out)
	pending := reqs
	if !opts.SkipValidation {
		refs := make([]Reference, 0, len(reqs))
		for _, req := range reqs {
			refs = append(refs, req.Reference)
		}
		failures := c.validator.Validate(ctx, refs)

		if len(failures) > 0 {
			pending = pending[:0:0]
			for _, req := range reqs {
				if msg, failed := failures[req.Reference.String()]; failed {
					result.Outcomes = append(result.Outcomes, SetOutcome{
						Name:           req.Reference.String(),
						RequestedValue: req.Value,
						Success:        false,
						Error:          msg,
						Ramp:           req.Ramp,
					})
					continue
				}
				pending = append(pending, req)
			}
		}
	}

	// Batch the survivors per component and write
	named, batches := groupRequests(pending)

	for _, batch := range batches {
		result.Outcomes = append(result.Outcomes, c.setComponentBatch(ctx, batch)...)
	}
	for _, req := range named {
		result.Outcomes = append(result.Outcomes, c.setNamed(ctx, req))
	}

	result.finalize()

	c.logger.Debug("set batch complete",
		"requested", len(reqs),
		"outcomes", len(result.Outcomes),
		"is_error", result.IsError,
	)

	return result, nil
}

// groupRequests splits set requests the same way GroupByComponent splits
// references, preserving first-appearance batch order.
func groupRequests(reqs []SetRequest) (named []SetRequest, batches [][]SetRequest) {
	index := make(map[string]int)

	for _, req := range reqs {
		if req.Reference.Kind == KindNamed {
			named = append(named, req)
			continue
		}
		i, ok := index[req.Reference.Component]
		if !ok {
			i = len(batches)
			index[req.Reference.Component] = i
			batches = append(batches, nil)
		}
		batches[i] = append(batches[i], req)
	}

	return named, batches
}

// setComponentBatch writes all of one component's controls in a single
// Component.Set call and normalises the response.
func (c *Controller) setComponentBatch(ctx context.Context, batch []SetRequest) []SetOutcome {
	component := batch[0].Reference.Component

	controls := make([]map[string]any, 0, len(batch))
	for _, req := range batch {
		entry := map[string]any{
			"Name":  req.Reference.Control,
			"Value": CoerceValue(req.Value),
		}
		if req.Ramp != nil {
			entry["Ramp"] = *req.Ramp
		}
		controls = append(controls, entry)
	}

	raw, err := c.transport.Send(ctx, "Component.Set", map[string]any{
		"Name":     component,
		"Controls": controls,
	})
	if err != nil {
		c.logger.Warn("component set failed", "component", component, "error", err)
		return failBatch(batch, err.Error())
	}

	return normalizeBatch(batch, raw, func(r Reference) string { return r.Control })
}

// setNamed writes a single global named control via Control.Set.
func (c *Controller) setNamed(ctx context.Context, req SetRequest) SetOutcome {
	params := map[string]any{
		"Name":  req.Reference.Name,
		"Value": CoerceValue(req.Value),
	}
	if req.Ramp != nil {
		params["Ramp"] = *req.Ramp
	}

	raw, err := c.transport.Send(ctx, "Control.Set", params)
	if err != nil {
		c.logger.Warn("named set failed", "control", req.Reference.Name, "error", err)
		return failBatch([]SetRequest{req}, err.Error())[0]
	}

	return normalizeBatch([]SetRequest{req}, raw, func(r Reference) string { return r.Name })[0]
}

// Get reads current values for one or more controls.
//
// Named references travel together in one Control.Get call; component
// references are batched per component into Component.Get calls. Results
// are returned in request order.
//
// Returns:
//   - []ControlValue: One value per requested reference
//   - error: ErrEmptyBatch, or ErrTransport wrapping the first failed call
func (c *Controller) Get(ctx context.Context, refs []Reference) ([]ControlValue, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyBatch
	}

	named, batches := GroupByComponent(refs)

	values := make(map[string]ControlValue, len(refs))

	if len(named) > 0 {
		if err := c.getNamed(ctx, named, values); err != nil {
			return nil, err
		}
	}
	for _, batch := range batches {
		if err := c.getComponentBatch(ctx, batch, values); err != nil {
			return nil, err
		}
	}

	// Reassemble in request order
	out := make([]ControlValue, 0, len(refs))
	for _, ref := range refs {
		if v, ok := values[ref.String()]; ok {
			out = append(out, v)
			continue
		}
		// The core omitted it; surface the name with a nil value rather
		// than silently shrinking the result.
		out = append(out, ControlValue{Name: ref.String()})
	}
	return out, nil
}

// getNamed reads all named controls in one Control.Get call.
func (c *Controller) getNamed(ctx context.Context, refs []Reference, values map[string]ControlValue) error {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}

	raw, err := c.transport.Send(ctx, "Control.Get", names)
	if err != nil {
		return fmt.Errorf("%w: Control.Get: %w", ErrTransport, err)
	}

	var entries []struct {
		Name   string `json:"Name"`
		Value  any    `json:"Value"`
		String string `json:"String"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, MsgUnexpectedResponse)
	}

	for _, e := range entries {
		values[e.Name] = ControlValue{Name: e.Name, Value: e.Value, String: e.String}
	}
	return nil
}

// getComponentBatch reads one component's controls in one Component.Get call.
func (c *Controller) getComponentBatch(ctx context.Context, batch ComponentBatch, values map[string]ControlValue) error {
	controls := make([]map[string]any, 0, len(batch.References))
	for _, ref := range batch.References {
		controls = append(controls, map[string]any{"Name": ref.Control})
	}

	raw, err := c.transport.Send(ctx, "Component.Get", map[string]any{
		"Name":     batch.Component,
		"Controls": controls,
	})
	if err != nil {
		return fmt.Errorf("%w: Component.Get %q: %w", ErrTransport, batch.Component, err)
	}

	var listing struct {
		Name     string `json:"Name"`
		Controls []struct {
			Name   string `json:"Name"`
			Value  any    `json:"Value"`
			String string `json:"String"`
		} `json:"Controls"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, MsgUnexpectedResponse)
	}

	for _, e := range listing.Controls {
		full := batch.Component + "." + e.Name
		values[full] = ControlValue{Name: full, Value: e.Value, String: e.String}
	}
	return nil
}

// Status queries the core's engine status via Status.Get.
func (c *Controller) Status(ctx context.Context) (CoreStatus, error) {
	raw, err := c.transport.Send(ctx, "Status.Get", nil)
	if err != nil {
		return CoreStatus{}, fmt.Errorf("%w: Status.Get: %w", ErrTransport, err)
	}

	var status CoreStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return CoreStatus{}, fmt.Errorf("%w: %s", ErrTransport, MsgUnexpectedResponse)
	}
	return status, nil
}
