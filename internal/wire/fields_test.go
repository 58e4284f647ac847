package wire

import (
	"errors"
	"testing"
)

func TestFieldsRoundTrip(t *testing.T) {
	var w FieldWriter
	w.String(1, "living room relay")
	w.Fixed32(2, 0xDEADBEEF)
	w.Bool(3, true)
	w.Float(4, 21.5)
	w.Uint32(5, 300)

	f, err := ParseFields(w.Bytes())
	if err != nil {
		t.Fatalf("ParseFields() unexpected error: %v", err)
	}

	if got := f.String(1); got != "living room relay" {
		t.Errorf("String(1) = %q", got)
	}
	if got := f.Fixed32(2); got != 0xDEADBEEF {
		t.Errorf("Fixed32(2) = %X", got)
	}
	if !f.Bool(3) {
		t.Error("Bool(3) = false, want true")
	}
	if got := f.Float(4); got != 21.5 {
		t.Errorf("Float(4) = %v", got)
	}
	if got := f.Uint32(5); got != 300 {
		t.Errorf("Uint32(5) = %d", got)
	}
}

func TestFieldsZeroValuesOmitted(t *testing.T) {
	var w FieldWriter
	w.Bool(1, false)
	w.Float(2, 0)
	w.String(3, "")
	w.Fixed32(4, 0)

	if got := w.Bytes(); len(got) != 0 {
		t.Errorf("zero fields encoded %d bytes, want empty payload", len(got))
	}

	// Absent fields decode to zero defaults.
	f, err := ParseFields(nil)
	if err != nil {
		t.Fatalf("ParseFields(nil) unexpected error: %v", err)
	}
	if f.Bool(1) || f.Float(2) != 0 || f.String(3) != "" || f.Fixed32(4) != 0 {
		t.Error("absent fields did not decode to zero defaults")
	}
}

func TestFieldsUnknownFieldSkipped(t *testing.T) {
	// A payload with a field number the receiver does not know must still
	// parse; the known fields remain readable.
	var w FieldWriter
	w.Fixed32(1, 42)
	w.String(99, "future extension")
	w.Bool(2, true)

	f, err := ParseFields(w.Bytes())
	if err != nil {
		t.Fatalf("ParseFields() unexpected error: %v", err)
	}
	if f.Fixed32(1) != 42 || !f.Bool(2) {
		t.Error("known fields lost when unknown field present")
	}
}

func TestFieldsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "truncated tag", data: []byte{0x80}},
		{name: "truncated fixed32", data: []byte{0x0D, 0x01, 0x02}},
		{name: "truncated string", data: []byte{0x0A, 0x05, 'a', 'b'}},
		{name: "unsupported wire kind", data: []byte{0x0B}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFields(tt.data)
			if !errors.Is(err, ErrMalformedField) {
				t.Errorf("ParseFields(%X) error = %v, want ErrMalformedField", tt.data, err)
			}
		})
	}
}

func TestLightCommandRoundTrip(t *testing.T) {
	// Representative of the optional-group messages: Has flags must
	// survive independently of their values.
	cmd := LightCommand{
		Key:           0x1234ABCD,
		HasOn:         true,
		On:            true,
		HasBrightness: true,
		Brightness:    0.75,
		HasRGB:        false,
	}

	got, err := ParseLightCommand(cmd.Encode())
	if err != nil {
		t.Fatalf("ParseLightCommand() unexpected error: %v", err)
	}
	if got != cmd {
		t.Errorf("round trip = %+v, want %+v", got, cmd)
	}
}

func TestSensorStateMissingFlag(t *testing.T) {
	st := SensorState{Key: 7, Missing: true}
	got, err := ParseSensorState(st.Encode())
	if err != nil {
		t.Fatalf("ParseSensorState() unexpected error: %v", err)
	}
	if !got.Missing || got.State != 0 || got.Key != 7 {
		t.Errorf("round trip = %+v, want %+v", got, st)
	}
}
