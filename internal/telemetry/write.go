package telemetry

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/nodelink/internal/entity"
)

// stateMeasurement is the measurement all entity state points land in.
const stateMeasurement = "entity_state"

// Observe records one entity state snapshot.
//
// The signature matches the registry's observer hook, so a connected
// client can be attached directly with AddObserver. Non-numeric states
// (sensors with no reading yet) are skipped. The write itself is
// batched and asynchronous.
func (c *Client) Observe(e entity.Entity) {
	if !c.IsConnected() {
		return
	}

	fields, ok := stateFields(e.State)
	if !ok {
		return
	}

	point := write.NewPoint(
		stateMeasurement,
		map[string]string{
			"name": e.Name,
			"kind": e.Kind.String(),
			"key":  strconv.FormatUint(uint64(e.Key), 10),
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// stateFields converts a state into point fields.
//
// Boolean states become a 0/1 "on" field so duty cycles can be graphed.
// Lights additionally carry brightness. Returns false when the state
// has no numeric representation.
func stateFields(s entity.State) (map[string]interface{}, bool) {
	switch s.Kind {
	case entity.KindSensor:
		if s.Missing {
			return nil, false
		}
		return map[string]interface{}{
			"value": float64(s.Value),
		}, true
	case entity.KindBinarySensor:
		return map[string]interface{}{
			"on": boolField(s.On),
		}, true
	case entity.KindSwitch:
		return map[string]interface{}{
			"on": boolField(s.On),
		}, true
	case entity.KindLight:
		return map[string]interface{}{
			"on":         boolField(s.On),
			"brightness": float64(s.Brightness),
		}, true
	default:
		return nil, false
	}
}

func boolField(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
