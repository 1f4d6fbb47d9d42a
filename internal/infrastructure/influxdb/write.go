package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteControlChange records one observed control change.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Non-numeric values are stored under the value_string field instead of
// value, so a control flapping between types never corrupts the series.
func (c *Client) WriteControlChange(groupID, control string, value any, display string, at time.Time) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	switch v := value.(type) {
	case float64:
		fields["value"] = v
	case int:
		fields["value"] = float64(v)
	case bool:
		if v {
			fields["value"] = 1.0
		} else {
			fields["value"] = 0.0
		}
	default:
		fields["value_string"] = display
	}
	if display != "" {
		fields["display"] = display
	}

	point := write.NewPoint(
		"control_changes",
		map[string]string{
			"group_id": groupID,
			"control":  control,
		},
		fields,
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteCoreStatus records the Q-SYS core's engine status code.
func (c *Client) WriteCoreStatus(designName string, code int, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"core_status",
		map[string]string{
			"design": designName,
		},
		map[string]interface{}{
			"code":  code,
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
