package control

import "errors"

// Domain errors for the control package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, control.ErrInvalidFormat) {
//	    // handle malformed reference
//	}
var (
	// ErrInvalidFormat is returned when a control reference string cannot
	// be resolved (empty component or control segment).
	ErrInvalidFormat = errors.New("control: invalid reference format")

	// ErrValidationFailed is returned when pre-flight validation finds a
	// missing component or control. Raised only when validation is enabled.
	ErrValidationFailed = errors.New("control: validation failed")

	// ErrTransport is returned when the underlying QRC call failed or
	// returned a malformed shape.
	ErrTransport = errors.New("control: transport call failed")

	// ErrEmptyBatch is returned when a get or set is issued with no
	// references.
	ErrEmptyBatch = errors.New("control: no controls in request")
)

// Caller-visible message constants. These strings are load-bearing: agents
// and regression tests match on them, so they must not drift.
const (
	// MsgInvalidFormat is the message for unresolvable references.
	MsgInvalidFormat = "Invalid control name format, expected ComponentName.controlName"

	// MsgUnexpectedResponse marks every control in a batch failed when the
	// core's response is not array-shaped.
	MsgUnexpectedResponse = "Unexpected response format from Q-SYS"
)
