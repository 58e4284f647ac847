package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Wire kinds for payload fields.
const (
	kindVarint   = 0
	kindLenDelim = 2
	kindFixed32  = 5
)

// FieldWriter builds a tagged-field payload.
//
// Zero values are omitted, matching the decoder's zero defaults: a missing
// field reads back as false / 0 / "".
type FieldWriter struct {
	buf []byte
}

func (w *FieldWriter) tag(num int, kind int) {
	w.buf = AppendVarint(w.buf, uint32(num)<<3|uint32(kind))
}

// Bool writes a boolean field. False is omitted.
func (w *FieldWriter) Bool(num int, v bool) {
	if !v {
		return
	}
	w.tag(num, kindVarint)
	w.buf = AppendVarint(w.buf, 1)
}

// Uint32 writes a varint field. Zero is omitted.
func (w *FieldWriter) Uint32(num int, v uint32) {
	if v == 0 {
		return
	}
	w.tag(num, kindVarint)
	w.buf = AppendVarint(w.buf, v)
}

// Fixed32 writes a 32-bit little-endian field. Zero is omitted.
func (w *FieldWriter) Fixed32(num int, v uint32) {
	if v == 0 {
		return
	}
	w.tag(num, kindFixed32)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Float writes an IEEE-754 float as a fixed32 field. Zero is omitted.
func (w *FieldWriter) Float(num int, v float32) {
	if v == 0 {
		return
	}
	w.tag(num, kindFixed32)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// String writes a length-delimited field. Empty strings are omitted.
func (w *FieldWriter) String(num int, s string) {
	if s == "" {
		return
	}
	w.tag(num, kindLenDelim)
	w.buf = AppendVarint(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Bytes returns the encoded payload. The returned slice aliases the
// writer's buffer; do not reuse the writer afterwards.
func (w *FieldWriter) Bytes() []byte {
	return w.buf
}

// Fields holds a decoded payload, indexed by field number.
//
// Duplicate field numbers keep the last occurrence. Unknown wire kinds
// fail the whole payload: without knowing a kind's width the remaining
// bytes cannot be framed.
type Fields struct {
	varints  map[int]uint32
	fixed32s map[int]uint32
	bytes    map[int][]byte
}

// ParseFields decodes a tagged-field payload.
//
// Returns:
//   - Fields: Accessor over the decoded fields
//   - error: ErrMalformedField (wrapped) if the payload is truncated or a
//     field uses an unsupported wire kind
func ParseFields(payload []byte) (Fields, error) {
	f := Fields{
		varints:  make(map[int]uint32),
		fixed32s: make(map[int]uint32),
		bytes:    make(map[int][]byte),
	}

	for len(payload) > 0 {
		tag, n, err := DecodeVarint(payload)
		if err != nil {
			return Fields{}, fmt.Errorf("%w: tag: %w", ErrMalformedField, err)
		}
		payload = payload[n:]

		num := int(tag >> 3)
		kind := int(tag & 0x07)

		switch kind {
		case kindVarint:
			v, n, err := DecodeVarint(payload)
			if err != nil {
				return Fields{}, fmt.Errorf("%w: field %d: %w", ErrMalformedField, num, err)
			}
			payload = payload[n:]
			f.varints[num] = v

		case kindFixed32:
			if len(payload) < 4 {
				return Fields{}, fmt.Errorf("%w: field %d: truncated fixed32", ErrMalformedField, num)
			}
			f.fixed32s[num] = binary.LittleEndian.Uint32(payload)
			payload = payload[4:]

		case kindLenDelim:
			length, n, err := DecodeVarint(payload)
			if err != nil {
				return Fields{}, fmt.Errorf("%w: field %d: %w", ErrMalformedField, num, err)
			}
			payload = payload[n:]
			if uint32(len(payload)) < length {
				return Fields{}, fmt.Errorf("%w: field %d: truncated bytes", ErrMalformedField, num)
			}
			f.bytes[num] = payload[:length]
			payload = payload[length:]

		default:
			return Fields{}, fmt.Errorf("%w: field %d: unsupported wire kind %d", ErrMalformedField, num, kind)
		}
	}

	return f, nil
}

// Bool returns the boolean value of a varint field, or false if absent.
func (f Fields) Bool(num int) bool {
	return f.varints[num] != 0
}

// Uint32 returns the value of a varint field, or 0 if absent.
func (f Fields) Uint32(num int) uint32 {
	return f.varints[num]
}

// Fixed32 returns the value of a fixed32 field, or 0 if absent.
func (f Fields) Fixed32(num int) uint32 {
	return f.fixed32s[num]
}

// Float returns the value of a fixed32 field as a float, or 0 if absent.
func (f Fields) Float(num int) float32 {
	return math.Float32frombits(f.fixed32s[num])
}

// String returns the value of a length-delimited field, or "" if absent.
func (f Fields) String(num int) string {
	return string(f.bytes[num])
}
