package eventcache

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the eventcache package.
var (
	// ErrQueryTimeout is returned when a cache query exceeds its bound.
	ErrQueryTimeout = errors.New("eventcache: query timed out")

	// ErrInvalidRange is returned when a query's end precedes its start.
	ErrInvalidRange = errors.New("eventcache: end time precedes start time")
)

// QueryTimeoutError carries the configured timeout so callers can report it.
type QueryTimeoutError struct {
	Timeout time.Duration
}

// Error implements the error interface. The message names the bound and a
// remedy, since callers surface it verbatim.
func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf(
		"eventcache: query exceeded its %v timeout; narrow the time range or raise the query timeout",
		e.Timeout)
}

// Unwrap allows errors.Is(err, ErrQueryTimeout).
func (e *QueryTimeoutError) Unwrap() error {
	return ErrQueryTimeout
}
