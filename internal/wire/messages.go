package wire

// Typed payload schemas for the messages that carry fields. Messages with
// empty payloads (hello request, ping, disconnect, subscribe, list done)
// have no schema here; they are just a frame with their type number.

// HelloResponse carries a human-readable server identifier.
type HelloResponse struct {
	ServerInfo string
}

// Encode returns the tagged-field payload.
func (m HelloResponse) Encode() []byte {
	var w FieldWriter
	w.String(1, m.ServerInfo)
	return w.Bytes()
}

// ParseHelloResponse decodes a HelloResponse payload.
func ParseHelloResponse(payload []byte) (HelloResponse, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return HelloResponse{}, err
	}
	return HelloResponse{ServerInfo: f.String(1)}, nil
}

// ConnectRequest carries the optional password.
type ConnectRequest struct {
	Password string
}

// Encode returns the tagged-field payload.
func (m ConnectRequest) Encode() []byte {
	var w FieldWriter
	w.String(1, m.Password)
	return w.Bytes()
}

// ParseConnectRequest decodes a ConnectRequest payload.
func ParseConnectRequest(payload []byte) (ConnectRequest, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return ConnectRequest{}, err
	}
	return ConnectRequest{Password: f.String(1)}, nil
}

// ConnectResponse signals authentication outcome. An empty payload
// (InvalidPassword false) means success.
type ConnectResponse struct {
	InvalidPassword bool
}

// Encode returns the tagged-field payload.
func (m ConnectResponse) Encode() []byte {
	var w FieldWriter
	w.Bool(1, m.InvalidPassword)
	return w.Bytes()
}

// ParseConnectResponse decodes a ConnectResponse payload.
func ParseConnectResponse(payload []byte) (ConnectResponse, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return ConnectResponse{}, err
	}
	return ConnectResponse{InvalidPassword: f.Bool(1)}, nil
}

// DeviceInfo describes the device: served in DeviceInfoResponse.
type DeviceInfo struct {
	Name        string
	MAC         string
	Version     string
	CompileTime string
	Board       string
}

// Encode returns the tagged-field payload.
func (m DeviceInfo) Encode() []byte {
	var w FieldWriter
	w.String(1, m.Name)
	w.String(2, m.MAC)
	w.String(3, m.Version)
	w.String(4, m.CompileTime)
	w.String(5, m.Board)
	return w.Bytes()
}

// ParseDeviceInfo decodes a DeviceInfoResponse payload.
func ParseDeviceInfo(payload []byte) (DeviceInfo, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{
		Name:        f.String(1),
		MAC:         f.String(2),
		Version:     f.String(3),
		CompileTime: f.String(4),
		Board:       f.String(5),
	}, nil
}

// EntityEntry is the shared schema of the per-kind list-entities
// responses (types 12, 15, 17 and 19). The kind is carried by the frame's
// message type; the payload only names the entity and its key.
type EntityEntry struct {
	Name string
	Key  uint32
}

// Encode returns the tagged-field payload.
func (m EntityEntry) Encode() []byte {
	var w FieldWriter
	w.String(1, m.Name)
	w.Fixed32(2, m.Key)
	return w.Bytes()
}

// ParseEntityEntry decodes a per-kind list-entities response payload.
func ParseEntityEntry(payload []byte) (EntityEntry, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return EntityEntry{}, err
	}
	return EntityEntry{Name: f.String(1), Key: f.Fixed32(2)}, nil
}

// BinarySensorState is the state push for a binary sensor (type 22).
type BinarySensorState struct {
	Key   uint32
	State bool
}

// Encode returns the tagged-field payload.
func (m BinarySensorState) Encode() []byte {
	var w FieldWriter
	w.Fixed32(1, m.Key)
	w.Bool(2, m.State)
	return w.Bytes()
}

// ParseBinarySensorState decodes a binary sensor state payload.
func ParseBinarySensorState(payload []byte) (BinarySensorState, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return BinarySensorState{}, err
	}
	return BinarySensorState{Key: f.Fixed32(1), State: f.Bool(2)}, nil
}

// SensorState is the state push for a numeric sensor (type 25).
// Missing marks a sensor that has never produced a reading.
type SensorState struct {
	Key     uint32
	State   float32
	Missing bool
}

// Encode returns the tagged-field payload.
func (m SensorState) Encode() []byte {
	var w FieldWriter
	w.Fixed32(1, m.Key)
	w.Float(2, m.State)
	w.Bool(3, m.Missing)
	return w.Bytes()
}

// ParseSensorState decodes a sensor state payload.
func ParseSensorState(payload []byte) (SensorState, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return SensorState{}, err
	}
	return SensorState{Key: f.Fixed32(1), State: f.Float(2), Missing: f.Bool(3)}, nil
}

// SwitchState is the state push for a switch (type 27).
type SwitchState struct {
	Key   uint32
	State bool
}

// Encode returns the tagged-field payload.
func (m SwitchState) Encode() []byte {
	var w FieldWriter
	w.Fixed32(1, m.Key)
	w.Bool(2, m.State)
	return w.Bytes()
}

// ParseSwitchState decodes a switch state payload.
func ParseSwitchState(payload []byte) (SwitchState, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return SwitchState{}, err
	}
	return SwitchState{Key: f.Fixed32(1), State: f.Bool(2)}, nil
}

// LightState is the state push for a light (type 29).
type LightState struct {
	Key        uint32
	On         bool
	Brightness float32
	Red        float32
	Green      float32
	Blue       float32
}

// Encode returns the tagged-field payload.
func (m LightState) Encode() []byte {
	var w FieldWriter
	w.Fixed32(1, m.Key)
	w.Bool(2, m.On)
	w.Float(3, m.Brightness)
	w.Float(4, m.Red)
	w.Float(5, m.Green)
	w.Float(6, m.Blue)
	return w.Bytes()
}

// ParseLightState decodes a light state payload.
func ParseLightState(payload []byte) (LightState, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return LightState{}, err
	}
	return LightState{
		Key:        f.Fixed32(1),
		On:         f.Bool(2),
		Brightness: f.Float(3),
		Red:        f.Float(4),
		Green:      f.Float(5),
		Blue:       f.Float(6),
	}, nil
}

// SwitchCommand asks the device to set a switch (type 33).
// There is no acknowledgement: success is observed as a state push.
type SwitchCommand struct {
	Key   uint32
	State bool
}

// Encode returns the tagged-field payload.
func (m SwitchCommand) Encode() []byte {
	var w FieldWriter
	w.Fixed32(1, m.Key)
	w.Bool(2, m.State)
	return w.Bytes()
}

// ParseSwitchCommand decodes a switch command payload.
func ParseSwitchCommand(payload []byte) (SwitchCommand, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return SwitchCommand{}, err
	}
	return SwitchCommand{Key: f.Fixed32(1), State: f.Bool(2)}, nil
}

// LightCommand asks the device to set a light (type 35). Each optional
// group carries an explicit Has flag so "turn on without touching
// brightness" is representable.
type LightCommand struct {
	Key uint32

	HasOn bool
	On    bool

	HasBrightness bool
	Brightness    float32

	HasRGB bool
	Red    float32
	Green  float32
	Blue   float32
}

// Encode returns the tagged-field payload.
func (m LightCommand) Encode() []byte {
	var w FieldWriter
	w.Fixed32(1, m.Key)
	w.Bool(2, m.HasOn)
	w.Bool(3, m.On)
	w.Bool(4, m.HasBrightness)
	w.Float(5, m.Brightness)
	w.Bool(6, m.HasRGB)
	w.Float(7, m.Red)
	w.Float(8, m.Green)
	w.Float(9, m.Blue)
	return w.Bytes()
}

// ParseLightCommand decodes a light command payload.
func ParseLightCommand(payload []byte) (LightCommand, error) {
	f, err := ParseFields(payload)
	if err != nil {
		return LightCommand{}, err
	}
	return LightCommand{
		Key:           f.Fixed32(1),
		HasOn:         f.Bool(2),
		On:            f.Bool(3),
		HasBrightness: f.Bool(4),
		Brightness:    f.Float(5),
		HasRGB:        f.Bool(6),
		Red:           f.Float(7),
		Green:         f.Float(8),
		Blue:          f.Float(9),
	}, nil
}
