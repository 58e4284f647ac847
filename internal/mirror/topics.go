package mirror

import "fmt"

// DefaultTopicPrefix roots every published topic when the config leaves
// it unset.
const DefaultTopicPrefix = "nodelink"

// Topics builds the mirror's MQTT topic names. Using these helpers
// keeps topic naming consistent between the LWT, the status publisher
// and the state publisher.
//
//	topics := mirror.Topics{Prefix: "nodelink", Device: "greenhouse"}
//	topics.EntityState("sensor", "temp")
//	// Returns: "nodelink/greenhouse/sensor/temp/state"
type Topics struct {
	// Prefix is the topic root (default "nodelink").
	Prefix string

	// Device is the node's name, one level below the prefix.
	Device string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// DeviceStatus returns the availability topic carrying online/offline
// payloads (also the LWT topic).
//
// Example: nodelink/greenhouse/status
func (t Topics) DeviceStatus() string {
	return fmt.Sprintf("%s/%s/status", t.prefix(), t.Device)
}

// EntityState returns the retained state topic for one entity.
//
// Example: nodelink/greenhouse/switch/relay/state
func (t Topics) EntityState(kind, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s/state", t.prefix(), t.Device, kind, name)
}
