package changegroup

import (
	"context"
	"encoding/json"

	"github.com/avlogic/qsys-bridge/internal/eventcache"
)

// Transport is the request/response surface the registry issues QRC calls
// on. It is satisfied by *qrc.Client; tests substitute a fake.
type Transport interface {
	Send(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// ChangeRecorder receives observed changes for retention. Satisfied by
// *eventcache.Cache.
type ChangeRecorder interface {
	Record(groupID string, entries []eventcache.Entry)
	DropGroup(groupID string)
}

// EventSink receives every batch of observed changes for fan-out.
// Implementations must not block: slow consumers buffer or drop on their
// own side.
type EventSink interface {
	PublishChanges(groupID string, entries []eventcache.Entry)
}

// Logger defines the logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Info is one group's summary as reported by List.
type Info struct {
	ID           string `json:"id"`
	ControlCount int    `json:"control_count"`
	HasAutoPoll  bool   `json:"has_auto_poll"`
}

// pollResult is the core's ChangeGroup.Poll response shape.
type pollResult struct {
	ID      string       `json:"Id"`
	Changes []pollChange `json:"Changes"`
}

// pollChange is one changed control inside a poll response. Component is
// empty for named controls.
type pollChange struct {
	Name      string `json:"Name"`
	Component string `json:"Component,omitempty"`
	Value     any    `json:"Value"`
	String    string `json:"String,omitempty"`
}

// fullName reconstructs the caller-facing control name.
func (c pollChange) fullName() string {
	if c.Component != "" {
		return c.Component + "." + c.Name
	}
	return c.Name
}
