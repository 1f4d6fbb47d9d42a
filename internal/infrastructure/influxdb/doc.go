// Package influxdb records control-change telemetry in InfluxDB v2.
//
// Writes are non-blocking and batched by the underlying client; async write
// failures surface through an error callback. The package also provides a
// ChangeSink adapter so observed change-group events flow straight into the
// bucket alongside any custom points the caller writes.
//
// Thread Safety: all methods are safe for concurrent use.
package influxdb
