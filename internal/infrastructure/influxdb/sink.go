package influxdb

import (
	"time"

	"github.com/avlogic/qsys-bridge/internal/eventcache"
)

// ChangeWriter is the slice of Client the sink needs. Tests substitute a fake.
type ChangeWriter interface {
	WriteControlChange(groupID, control string, value any, display string, at time.Time)
}

// ChangeSink streams observed control changes into InfluxDB. It implements
// changegroup.EventSink. Writes are batched by the underlying client, so
// even a 33Hz poller costs one HTTP flush per interval, not per change.
type ChangeSink struct {
	writer ChangeWriter
}

// NewChangeSink wires a sink to a connected client.
func NewChangeSink(writer ChangeWriter) *ChangeSink {
	return &ChangeSink{writer: writer}
}

// PublishChanges records one poll's changes. Never blocks.
func (s *ChangeSink) PublishChanges(groupID string, entries []eventcache.Entry) {
	for _, e := range entries {
		s.writer.WriteControlChange(groupID, e.Control, e.Value, e.String, e.Timestamp)
	}
}
