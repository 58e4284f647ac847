package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestEncodeVarint(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  []byte
	}{
		{name: "zero", value: 0, want: []byte{0x00}},
		{name: "single byte max", value: 127, want: []byte{0x7F}},
		{name: "two bytes min", value: 128, want: []byte{0x80, 0x01}},
		{name: "port number", value: 6053, want: []byte{0xA5, 0x2F}},
		{name: "max uint32", value: math.MaxUint32, want: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeVarint(tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeVarint(%d) = %X, want %X", tt.value, got, tt.want)
			}
			if VarintLen(tt.value) != len(tt.want) {
				t.Errorf("VarintLen(%d) = %d, want %d", tt.value, VarintLen(tt.value), len(tt.want))
			}
		})
	}
}

func TestDecodeVarintRoundTrip(t *testing.T) {
	// Values chosen to cover every encoded length and the group
	// boundaries either side of each continuation threshold.
	values := []uint32{
		0, 1, 127, 128, 129, 300, 16383, 16384,
		2097151, 2097152, 268435455, 268435456, math.MaxUint32,
	}

	for _, v := range values {
		enc := EncodeVarint(v)
		got, n, err := DecodeVarint(enc)
		if err != nil {
			t.Fatalf("DecodeVarint(%X) unexpected error: %v", enc, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
		if n != len(enc) {
			t.Errorf("round trip %d: consumed %d bytes, want %d", v, n, len(enc))
		}
	}
}

func TestDecodeVarintErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty buffer", data: nil, want: ErrTruncatedVarint},
		{name: "continuation with no next byte", data: []byte{0x80}, want: ErrTruncatedVarint},
		{name: "all continuation bytes", data: []byte{0xFF, 0xFF, 0xFF}, want: ErrTruncatedVarint},
		{name: "six byte varint", data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, want: ErrVarintOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeVarint(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeVarint(%X) error = %v, want %v", tt.data, err, tt.want)
			}
		})
	}
}

func TestDecodeVarintTrailingBytes(t *testing.T) {
	// Decoding must stop at the varint's terminating byte and report the
	// exact count consumed, leaving trailing bytes untouched.
	data := append(EncodeVarint(300), 0xAB, 0xCD)
	v, n, err := DecodeVarint(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 300 || n != 2 {
		t.Errorf("got (%d, %d), want (300, 2)", v, n)
	}
}
