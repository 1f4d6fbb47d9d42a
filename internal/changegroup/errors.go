package changegroup

import (
	"errors"
	"fmt"
)

// Domain errors for the changegroup package.
var (
	// ErrGroupNotFound is returned when an operation targets a group the
	// registry does not know.
	ErrGroupNotFound = errors.New("changegroup: group not found")

	// ErrRateOutOfRange is returned when an auto-poll rate falls outside
	// the core's accepted range.
	ErrRateOutOfRange = errors.New("changegroup: poll rate out of range")

	// ErrTransport wraps failures from the underlying connection.
	ErrTransport = errors.New("changegroup: transport failure")
)

// RateOutOfRangeError reports the rejected rate together with the valid
// bounds. Callers surface the message verbatim.
type RateOutOfRangeError struct {
	RateSeconds float64
}

func (e *RateOutOfRangeError) Error() string {
	return fmt.Sprintf("Invalid poll rate %gs, valid range is %gs to %gs",
		e.RateSeconds, MinPollInterval.Seconds(), MaxPollInterval.Seconds())
}

// Unwrap allows errors.Is(err, ErrRateOutOfRange).
func (e *RateOutOfRangeError) Unwrap() error {
	return ErrRateOutOfRange
}
