// Package mqtt publishes observed control changes to an MQTT broker.
//
// The bridge is publish-only on MQTT: control mutations arrive over the
// HTTP API, and this package fans observed change-group events out to
// subscribers (dashboards, recorders, downstream automation).
//
// Architecture:
//
//	Client    - paho.mqtt.golang wrapper: connection, LWT, reconnect
//	Topics    - topic builders for the qsysbridge/... hierarchy
//	ChangeSink- changegroup.EventSink adapter publishing per-control state
//
// Connection management:
//   - Auto-reconnect with exponential backoff
//   - Last Will and Testament on qsysbridge/system/status for crash
//     detection; graceful shutdown publishes a distinct offline payload
//
// Thread Safety: all methods are safe for concurrent use.
package mqtt
