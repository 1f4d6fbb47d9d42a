package mqtt

import "fmt"

// Topic prefixes for the bridge's MQTT hierarchy.
//
// State topics carry one retained message per control so new subscribers
// immediately see the latest known value:
//
//	qsysbridge/state/{group_id}/{control_name}
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "qsysbridge"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "qsysbridge/system"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// ControlState returns the topic for one control's state within a group.
// Control names keep their dots; MQTT only reserves '/', '+' and '#'.
//
// Example: qsysbridge/state/zone-a/Mixer.gain
func (Topics) ControlState(groupID, control string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, groupID, control)
}

// GroupEvents returns the topic carrying a group's change batches.
//
// Example: qsysbridge/events/zone-a
func (Topics) GroupEvents(groupID string) string {
	return fmt.Sprintf("%s/events/%s", TopicPrefix, groupID)
}

// CoreStatus returns the topic for the Q-SYS core's engine status.
//
// Example: qsysbridge/core/status
func (Topics) CoreStatus() string {
	return fmt.Sprintf("%s/core/status", TopicPrefix)
}

// SystemStatus returns the bridge's own online/offline status topic.
//
// Example: qsysbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
