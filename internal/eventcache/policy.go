package eventcache

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders groups for global eviction. When the cache exceeds its
// shared bound, entries are reclaimed from lower-priority groups before
// higher-priority ones.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the lowercase name used in config and API payloads.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// ParsePriority maps a case-insensitive name to a Priority. Empty input
// selects PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("eventcache: unknown priority %q", s)
	}
}

// Default retention bounds. Applied to any group that has not been given an
// explicit policy.
const (
	DefaultMaxAge    = time.Hour
	DefaultMaxEvents = 100_000
)

// Policy bounds a single group's buffer.
//
// MaxAge <= 0 disables age-based eviction for the group; MaxEvents <= 0
// disables the per-group count bound. The global bound still applies.
type Policy struct {
	MaxAge    time.Duration
	MaxEvents int
	Priority  Priority
}

// DefaultPolicy returns the retention applied to unconfigured groups:
// one hour, 100,000 events, normal priority.
func DefaultPolicy() Policy {
	return Policy{
		MaxAge:    DefaultMaxAge,
		MaxEvents: DefaultMaxEvents,
		Priority:  PriorityNormal,
	}
}
