package eventcache

import (
	"context"
	"sort"
	"time"
)

// DefaultQueryTimeout bounds a query when the caller passes none.
const DefaultQueryTimeout = 30 * time.Second

// Query returns the group's entries whose timestamps fall inside the
// inclusive range [start, end], ordered by (timestamp, sequence) ascending.
// A zero start means the beginning of the buffer; a zero end means now.
//
// The timeout is advisory: when it elapses the caller gets a
// QueryTimeoutError, but the underlying fetch runs to completion and its
// late result is discarded. timeout <= 0 selects the cache's configured
// default (DefaultQueryTimeout unless overridden).
func (c *Cache) Query(ctx context.Context, groupID string, start, end time.Time, timeout time.Duration) ([]Entry, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, ErrInvalidRange
	}
	if timeout <= 0 {
		timeout = c.queryTimeout
	}

	// Buffered so an abandoned fetch can still deliver and exit.
	resultCh := make(chan []Entry, 1)
	go func() {
		resultCh <- c.fetch(groupID, start, end)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entries := <-resultCh:
		return entries, nil
	case <-timer.C:
		c.logger.Warn("cache query timed out",
			"group_id", groupID, "timeout", timeout.String())
		return nil, &QueryTimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fetchRange(groupID string, start, end time.Time) []Entry {
	c.mu.RLock()
	buf, ok := c.groups[groupID]
	c.mu.RUnlock()
	if !ok {
		return []Entry{}
	}

	buf.mu.Lock()
	matched := make([]Entry, 0, len(buf.entries))
	for _, e := range buf.entries {
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && e.Timestamp.After(end) {
			continue
		}
		matched = append(matched, e)
	}
	buf.mu.Unlock()

	// Buffers append in arrival order; pollers may deliver timestamps
	// slightly out of order, so sort before returning.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].Sequence < matched[j].Sequence
	})
	return matched
}
