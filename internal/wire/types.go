package wire

// Message type numbers. These are a fixed enumeration and must never be
// renumbered: both peers hardcode them.
const (
	TypeHelloRequest  uint32 = 1
	TypeHelloResponse uint32 = 2

	TypeConnectRequest  uint32 = 3
	TypeConnectResponse uint32 = 4

	TypeDisconnectRequest uint32 = 5

	TypePingRequest  uint32 = 7
	TypePingResponse uint32 = 8

	TypeDeviceInfoRequest  uint32 = 9
	TypeDeviceInfoResponse uint32 = 10

	TypeListEntitiesRequest uint32 = 11

	TypeListEntitiesBinarySensorResponse uint32 = 12
	TypeListEntitiesSensorResponse       uint32 = 15
	TypeListEntitiesSwitchResponse       uint32 = 17
	TypeListEntitiesLightResponse        uint32 = 19

	TypeSubscribeStatesRequest   uint32 = 20
	TypeListEntitiesDoneResponse uint32 = 21

	TypeBinarySensorStateResponse uint32 = 22
	TypeSensorStateResponse       uint32 = 25
	TypeSwitchStateResponse       uint32 = 27
	TypeLightStateResponse        uint32 = 29

	TypeSwitchCommandRequest uint32 = 33
	TypeLightCommandRequest  uint32 = 35
)
