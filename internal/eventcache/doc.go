// Package eventcache buffers observed control changes per change group.
//
// Each group gets an append-only, bounded buffer: entries carry a strictly
// increasing per-group sequence number and are ordered by (timestamp,
// sequence). Retention is governed by a per-group policy (max age, max
// events, eviction priority) plus an optional global bound shared across
// groups. When the global bound is exceeded, lower-priority groups are
// evicted first.
//
// Queries select an inclusive time range and are guarded by an advisory
// timeout: the caller's wait is abandoned at the deadline, the fetch itself
// is not aborted, and a late result is discarded rather than corrupting
// state.
//
// Groups are independent: steady-state recording takes only the owning
// group's lock, so concurrent pollers never contend with each other.
package eventcache
