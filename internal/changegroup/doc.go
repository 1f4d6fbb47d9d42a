// Package changegroup manages QRC change groups and their pollers.
//
// A change group is a named set of controls the core watches for value
// changes. The Registry owns the authoritative membership state: the core
// offers no way to enumerate a group's controls, so listing and membership
// queries are answered from local state while mutations are mirrored to the
// core over the transport.
//
// Architecture:
//
//	Registry  - group lifecycle, membership, manual polls
//	scheduler - per-group auto-poll loops (SetAutoPoll / ClearAutoPoll)
//	EventSink - fan-out target for observed changes (API, MQTT, InfluxDB)
//
// Poll results are recorded into the event cache and fanned out to every
// registered sink. Auto-poll rates are validated against the core's
// accepted range (0.03s to 3600s) before any timer state changes, so a bad
// rate never disturbs a running poller.
//
// Thread safety: all Registry methods are safe for concurrent use. Each
// group carries its own lock; registry-level locking covers only the group
// table.
package changegroup
