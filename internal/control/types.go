package control

import (
	"context"
	"encoding/json"
)

// Transport is the request/response surface the control layer issues calls
// on. It is satisfied by *qrc.Client; tests substitute a fake.
//
// The control layer never opens or manages the connection; it only sends
// requests and interprets responses and errors.
type Transport interface {
	Send(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Logger defines the logging interface used by the control layer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SetRequest is one requested control write.
type SetRequest struct {
	// Reference identifies the control.
	Reference Reference

	// Value is the caller's original value, preserved for reporting.
	Value any

	// Ramp is an optional transition time in seconds over which the core
	// applies the change. Nil means instantaneous.
	Ramp *float64
}

// SetOutcome is the per-control result of a write. It is created per
// request, populated during normalisation, and never mutated after return.
type SetOutcome struct {
	// Name is the full caller-facing control name.
	Name string `json:"name"`

	// RequestedValue is the caller's original (pre-coercion) value.
	RequestedValue any `json:"requested_value"`

	// Success reports whether the core applied the write.
	Success bool `json:"success"`

	// Error carries the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// Ramp echoes the requested ramp seconds, if any.
	Ramp *float64 `json:"ramp,omitempty"`
}

// BatchResult aggregates the outcomes of one set call.
//
// Invariant: IsError is true iff every outcome failed. Partial success is
// an overall non-error result with per-control detail intact.
type BatchResult struct {
	Outcomes []SetOutcome `json:"outcomes"`
	IsError  bool         `json:"is_error"`
}

// finalize computes the all-failed invariant.
func (r *BatchResult) finalize() {
	if len(r.Outcomes) == 0 {
		r.IsError = false
		return
	}
	for _, o := range r.Outcomes {
		if o.Success {
			r.IsError = false
			return
		}
	}
	r.IsError = true
}

// ControlValue is one control's current value as read from the core.
type ControlValue struct {
	// Name is the full caller-facing control name.
	Name string `json:"name"`

	// Value is the control's numeric/boolean value.
	Value any `json:"value"`

	// String is the core's display rendering of the value (e.g. "-12.0dB").
	String string `json:"string,omitempty"`
}

// CoreStatus is the engine status reported by Status.Get.
type CoreStatus struct {
	Platform    string `json:"Platform"`
	State       string `json:"State"`
	DesignName  string `json:"DesignName"`
	DesignCode  string `json:"DesignCode"`
	IsRedundant bool   `json:"IsRedundant"`
	IsEmulator  bool   `json:"IsEmulator"`
	Status      struct {
		Code   int    `json:"Code"`
		String string `json:"String"`
	} `json:"Status"`
}
