package entity

// Key is the stable 32-bit identifier of an entity. Zero is reserved for
// "invalid" and is never produced by DeriveKey.
type Key uint32

// Kind enumerates the entity kinds the protocol can route.
type Kind uint8

// Entity kinds.
const (
	KindBinarySensor Kind = iota
	KindSensor
	KindSwitch
	KindLight
)

// String returns the canonical kind name. This string participates in key
// derivation, so it must never change for an existing kind.
func (k Kind) String() string {
	switch k {
	case KindBinarySensor:
		return "binary_sensor"
	case KindSensor:
		return "sensor"
	case KindSwitch:
		return "switch"
	case KindLight:
		return "light"
	default:
		return "unknown"
	}
}

// KindFromString maps a canonical kind name back to its Kind.
// Unknown names map to KindBinarySensor; validate names upstream.
func KindFromString(s string) Kind {
	switch s {
	case "sensor":
		return KindSensor
	case "switch":
		return KindSwitch
	case "light":
		return KindLight
	default:
		return KindBinarySensor
	}
}

// State is the kind-tagged current value of an entity.
//
// Only the fields belonging to Kind are meaningful; the constructors
// below are the supported way to build one. Missing marks a sensor
// that has never produced a reading.
type State struct {
	Kind Kind

	// On is the boolean state for binary sensors, switches and lights.
	On bool

	// Value is the numeric reading for sensors.
	Value float32

	// Missing is set for sensors with no reading yet. Only sensors
	// carry it: the other kinds have no missing marker on the wire.
	Missing bool

	// Brightness and the colour channels apply to lights only.
	// All are in the range 0..1.
	Brightness float32
	Red        float32
	Green      float32
	Blue       float32
}

// BinarySensorState builds a binary sensor reading.
func BinarySensorState(on bool) State {
	return State{Kind: KindBinarySensor, On: on}
}

// SensorState builds a numeric sensor reading.
func SensorState(value float32) State {
	return State{Kind: KindSensor, Value: value}
}

// MissingSensorState builds the "no reading yet" state for a sensor.
func MissingSensorState() State {
	return State{Kind: KindSensor, Missing: true}
}

// SwitchState builds a switch state.
func SwitchState(on bool) State {
	return State{Kind: KindSwitch, On: on}
}

// LightState builds a light state. Brightness and colour channels are
// 0..1.
func LightState(on bool, brightness, red, green, blue float32) State {
	return State{
		Kind:       KindLight,
		On:         on,
		Brightness: brightness,
		Red:        red,
		Green:      green,
		Blue:       blue,
	}
}

// Entity is a read-only snapshot of one registered entity.
type Entity struct {
	Key   Key
	Name  string
	Kind  Kind
	State State
}
