package changegroup

import (
	"context"
	"math"
	"time"
)

// Auto-poll rate bounds accepted by the core.
const (
	MinPollInterval = 30 * time.Millisecond
	MaxPollInterval = time.Hour

	// DefaultPollInterval is used when a caller requests auto-poll without
	// a rate. Matches the core's fastest accepted cadence.
	DefaultPollInterval = 30 * time.Millisecond

	// pollTimeout bounds each scheduled poll request. Independent of the
	// poll interval so a slow core never wedges a fast poller.
	pollTimeout = 5 * time.Second
)

// poller is one group's auto-poll loop.
type poller struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func (g *group) hasPoller() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.poller != nil
}

// SetAutoPoll starts or replaces a group's auto-poll loop. rateSeconds is
// the poll period; zero selects DefaultPollInterval. Rates outside
// [0.03s, 3600s] are rejected before any timer state changes, so a running
// poller survives a bad request untouched.
func (r *Registry) SetAutoPoll(id string, rateSeconds float64) error {
	g, ok := r.lookup(id)
	if !ok {
		return ErrGroupNotFound
	}

	interval := DefaultPollInterval
	if rateSeconds != 0 {
		if rateSeconds < MinPollInterval.Seconds() || rateSeconds > MaxPollInterval.Seconds() {
			return &RateOutOfRangeError{RateSeconds: rateSeconds}
		}
		interval = time.Duration(math.Round(rateSeconds*1000)) * time.Millisecond
	}

	// Replace semantics: the old loop stops fully before the new one
	// starts, so two pollers never overlap on one group.
	r.stopPoller(g)
	g.failures.Store(0)

	p := &poller{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	g.mu.Lock()
	g.poller = p
	g.mu.Unlock()

	go r.runPoller(g, p)
	r.logger.Info("auto-poll enabled", "group_id", id, "interval", interval.String())
	return nil
}

// ClearAutoPoll stops a group's auto-poll loop. Returns once the loop has
// fully exited, so no poll started before the call can record afterwards.
func (r *Registry) ClearAutoPoll(id string) error {
	g, ok := r.lookup(id)
	if !ok {
		return ErrGroupNotFound
	}
	if !r.stopPoller(g) {
		return nil
	}
	r.logger.Info("auto-poll disabled", "group_id", id)
	return nil
}

// stopPoller detaches and stops the group's poller, waiting for the loop to
// exit. Reports whether a poller was running.
func (r *Registry) stopPoller(g *group) bool {
	g.mu.Lock()
	p := g.poller
	g.poller = nil
	g.mu.Unlock()
	if p == nil {
		return false
	}
	close(p.stop)
	<-p.done
	return true
}

// HasAutoPoll reports whether a group has an active auto-poll loop.
func (r *Registry) HasAutoPoll(id string) bool {
	g, ok := r.lookup(id)
	return ok && g.hasPoller()
}

// ConsecutiveFailures returns the group's current run of failed scheduled
// polls. Resets to zero on the next success or when auto-poll restarts.
func (r *Registry) ConsecutiveFailures(id string) int64 {
	g, ok := r.lookup(id)
	if !ok {
		return 0
	}
	return g.failures.Load()
}

// StopAll stops every auto-poll loop. Called during shutdown.
func (r *Registry) StopAll() {
	r.mu.RLock()
	groups := make([]*group, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, g)
	}
	r.mu.RUnlock()

	for _, g := range groups {
		r.stopPoller(g)
	}
}

func (r *Registry) runPoller(g *group, p *poller) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
			_, err := r.PollOnce(ctx, g.id)
			cancel()
			if err != nil {
				n := g.failures.Add(1)
				r.logger.Warn("scheduled poll failed",
					"group_id", g.id, "consecutive_failures", n, "error", err.Error())
				continue
			}
			g.failures.Store(0)
		}
	}
}
