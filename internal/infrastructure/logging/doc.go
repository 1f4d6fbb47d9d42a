// Package logging provides structured logging for the bridge.
//
// It wraps log/slog with the bridge's default attributes (service, version)
// and config-driven level/format/output selection. Domain packages do not
// import this package directly; they accept a small Logger interface so
// tests can substitute a recorder and library users can plug in their own.
package logging
