// Package control implements command translation between caller-facing
// control references and the Q-SYS core's addressing schemes.
//
// A caller addresses a control either by global name ("MainGain") or as
// component.control ("Zone.1.Output.gain"; the component is everything
// before the first dot). The package resolves references, coerces caller
// values to the wire representation, optionally pre-validates existence,
// batches writes per component, and normalises the core's
// success-by-omission response convention into deterministic per-control
// outcomes.
//
// # Key Types
//
//   - Reference: A resolved control reference (named or component-scoped)
//   - SetRequest / SetOutcome: One write and its per-control result
//   - Controller: Get/set orchestration over the QRC transport
//   - ValidationEngine: Optional pre-flight existence checks
//
// # The implicit-success convention
//
// Q-SYS write and poll responses list only controls with a noteworthy
// outcome (usually errors). A control absent from the response array
// succeeded. A response that is not array-shaped at all means the whole
// batch failed. Both rules live in normalize.go and nowhere else.
package control
