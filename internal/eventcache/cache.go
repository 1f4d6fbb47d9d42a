package eventcache

import (
	"sort"
	"sync"
	"time"
)

// Logger is the minimal logging interface the cache needs.
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

// Entry is one observed control change.
//
// Sequence is strictly increasing within a group and breaks ties between
// entries recorded at the same timestamp, so ordering is total and stable.
type Entry struct {
	GroupID   string    `json:"group_id"`
	Control   string    `json:"control"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
	Value     any       `json:"value"`
	String    string    `json:"string,omitempty"`
}

// groupBuffer holds one group's entries, oldest first.
type groupBuffer struct {
	mu      sync.Mutex
	entries []Entry
	policy  Policy
	nextSeq uint64
}

// Cache stores recent control changes per change group.
//
// Safe for concurrent use. Recording into distinct groups does not contend:
// the cache-level lock is held only to look up or create the group's buffer.
type Cache struct {
	mu            sync.RWMutex
	groups        map[string]*groupBuffer
	globalMax     int
	defaultPolicy Policy
	queryTimeout  time.Duration
	logger        Logger

	now   func() time.Time
	fetch func(groupID string, start, end time.Time) []Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultPolicy overrides the retention applied to unconfigured groups.
func WithDefaultPolicy(p Policy) Option {
	return func(c *Cache) { c.defaultPolicy = p }
}

// WithGlobalMaxEvents bounds the total entry count across all groups.
// Zero or negative disables the global bound.
func WithGlobalMaxEvents(n int) Option {
	return func(c *Cache) { c.globalMax = n }
}

// WithQueryTimeout sets the bound applied to queries that pass none.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.queryTimeout = d
		}
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates an empty cache with default retention.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		groups:        make(map[string]*groupBuffer),
		defaultPolicy: DefaultPolicy(),
		queryTimeout:  DefaultQueryTimeout,
		logger:        noopLogger{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.fetch = c.fetchRange
	return c
}

func (c *Cache) buffer(groupID string) *groupBuffer {
	c.mu.RLock()
	buf, ok := c.groups[groupID]
	c.mu.RUnlock()
	if ok {
		return buf
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if buf, ok = c.groups[groupID]; ok {
		return buf
	}
	buf = &groupBuffer{policy: c.defaultPolicy}
	c.groups[groupID] = buf
	return buf
}

// Record appends entries to a group's buffer, assigning sequence numbers
// and timestamps to any entry that lacks them, then enforces the group's
// retention policy and the global bound.
func (c *Cache) Record(groupID string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	buf := c.buffer(groupID)
	now := c.now()

	buf.mu.Lock()
	for i := range entries {
		entries[i].GroupID = groupID
		if entries[i].Timestamp.IsZero() {
			entries[i].Timestamp = now
		}
		buf.nextSeq++
		entries[i].Sequence = buf.nextSeq
	}
	buf.entries = append(buf.entries, entries...)
	buf.evictLocked(now)
	buf.mu.Unlock()

	if c.globalMax > 0 {
		c.enforceGlobalBound()
	}
}

// evictLocked applies the group's own policy: age first, then count.
// Caller holds buf.mu.
func (b *groupBuffer) evictLocked(now time.Time) {
	if b.policy.MaxAge > 0 {
		cutoff := now.Add(-b.policy.MaxAge)
		// Entries are oldest first; find the first survivor.
		keep := 0
		for keep < len(b.entries) && b.entries[keep].Timestamp.Before(cutoff) {
			keep++
		}
		if keep > 0 {
			b.entries = append(b.entries[:0], b.entries[keep:]...)
		}
	}
	if b.policy.MaxEvents > 0 && len(b.entries) > b.policy.MaxEvents {
		drop := len(b.entries) - b.policy.MaxEvents
		b.entries = append(b.entries[:0], b.entries[drop:]...)
	}
}

// enforceGlobalBound trims the oldest entries from the lowest-priority
// groups until the total fits under globalMax.
func (c *Cache) enforceGlobalBound() {
	c.mu.RLock()
	buffers := make(map[string]*groupBuffer, len(c.groups))
	for id, buf := range c.groups {
		buffers[id] = buf
	}
	c.mu.RUnlock()

	total := 0
	for _, buf := range buffers {
		buf.mu.Lock()
		total += len(buf.entries)
		buf.mu.Unlock()
	}
	excess := total - c.globalMax
	if excess <= 0 {
		return
	}

	// Lowest priority first, then largest buffer first so one trim pass
	// usually suffices.
	type victim struct {
		id  string
		buf *groupBuffer
	}
	order := make([]victim, 0, len(buffers))
	for id, buf := range buffers {
		order = append(order, victim{id, buf})
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := order[i].buf.priority(), order[j].buf.priority()
		if pi != pj {
			return pi < pj
		}
		return order[i].buf.size() > order[j].buf.size()
	})

	for _, v := range order {
		if excess <= 0 {
			return
		}
		v.buf.mu.Lock()
		drop := excess
		if drop > len(v.buf.entries) {
			drop = len(v.buf.entries)
		}
		if drop > 0 {
			v.buf.entries = append(v.buf.entries[:0], v.buf.entries[drop:]...)
			excess -= drop
			c.logger.Warn("global event bound reached, evicting",
				"group_id", v.id, "evicted", drop)
		}
		v.buf.mu.Unlock()
	}
}

func (b *groupBuffer) priority() Priority {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.policy.Priority
}

func (b *groupBuffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// SetPolicy replaces a group's retention policy and applies it immediately.
// The group's buffer is created if it does not exist yet, so a policy can be
// installed before the first change arrives.
func (c *Cache) SetPolicy(groupID string, p Policy) {
	buf := c.buffer(groupID)
	buf.mu.Lock()
	buf.policy = p
	buf.evictLocked(c.now())
	buf.mu.Unlock()
}

// Policy returns the group's current retention policy, or the default if the
// group has no buffer yet.
func (c *Cache) Policy(groupID string) Policy {
	c.mu.RLock()
	buf, ok := c.groups[groupID]
	c.mu.RUnlock()
	if !ok {
		return c.defaultPolicy
	}
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.policy
}

// ClearGroup discards a group's entries but keeps its buffer, policy and
// sequence counter.
func (c *Cache) ClearGroup(groupID string) {
	c.mu.RLock()
	buf, ok := c.groups[groupID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	buf.mu.Lock()
	buf.entries = nil
	buf.mu.Unlock()
}

// DropGroup removes a group's buffer entirely. Used when the change group
// itself is destroyed.
func (c *Cache) DropGroup(groupID string) {
	c.mu.Lock()
	delete(c.groups, groupID)
	c.mu.Unlock()
}

// GroupSize returns the number of cached entries for a group.
func (c *Cache) GroupSize(groupID string) int {
	c.mu.RLock()
	buf, ok := c.groups[groupID]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return buf.size()
}
