package mqtt

import (
	"encoding/json"
	"time"

	"github.com/avlogic/qsys-bridge/internal/eventcache"
)

// Publisher is the slice of Client the sink needs. Tests substitute a fake.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// changeMessage is the JSON payload published per control change.
type changeMessage struct {
	GroupID   string    `json:"group_id"`
	Control   string    `json:"control"`
	Value     any       `json:"value"`
	String    string    `json:"string,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
}

// ChangeSink publishes observed control changes to MQTT. It implements
// changegroup.EventSink.
//
// Each control gets a retained message on its state topic so late
// subscribers see the last known value, and the whole batch goes to the
// group's event topic unretained.
type ChangeSink struct {
	pub    Publisher
	qos    byte
	logger Logger
}

// NewChangeSink wires a sink to a connected client. QoS applies to both the
// per-control and batch publishes.
func NewChangeSink(pub Publisher, qos byte, logger Logger) *ChangeSink {
	return &ChangeSink{pub: pub, qos: qos, logger: logger}
}

// PublishChanges fans one poll's changes out to the broker. Publish errors
// are logged and skipped: a flaky broker must never stall the poll loop or
// starve other sinks.
func (s *ChangeSink) PublishChanges(groupID string, entries []eventcache.Entry) {
	topics := Topics{}

	for _, e := range entries {
		msg := changeMessage{
			GroupID:   groupID,
			Control:   e.Control,
			Value:     e.Value,
			String:    e.String,
			Timestamp: e.Timestamp,
			Sequence:  e.Sequence,
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			s.warn("marshal change failed", "control", e.Control, "error", err)
			continue
		}
		topic := topics.ControlState(groupID, e.Control)
		if err := s.pub.Publish(topic, payload, s.qos, true); err != nil {
			s.warn("publish state failed", "topic", topic, "error", err)
		}
	}

	batch, err := json.Marshal(entries)
	if err != nil {
		s.warn("marshal batch failed", "group_id", groupID, "error", err)
		return
	}
	topic := topics.GroupEvents(groupID)
	if err := s.pub.Publish(topic, batch, s.qos, false); err != nil {
		s.warn("publish batch failed", "topic", topic, "error", err)
	}
}

func (s *ChangeSink) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
