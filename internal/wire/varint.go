package wire

// maxVarintLen32 is the maximum number of bytes a 32-bit varint occupies.
const maxVarintLen32 = 5

// AppendVarint appends the base-128 varint encoding of v to dst.
//
// Encoding is little-endian group order: the low 7 bits go first, and the
// continuation bit (0x80) is set on every byte except the last.
func AppendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// EncodeVarint returns the varint encoding of v.
func EncodeVarint(v uint32) []byte {
	return AppendVarint(make([]byte, 0, maxVarintLen32), v)
}

// VarintLen returns the number of bytes the varint encoding of v occupies.
func VarintLen(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeVarint decodes a varint from the start of buf.
//
// Returns:
//   - uint32: Decoded value
//   - int: Number of bytes consumed
//   - error: ErrTruncatedVarint if buf ends before the terminating byte,
//     ErrVarintOverflow if more than 5 bytes carry continuation bits
func DecodeVarint(buf []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < len(buf); i++ {
		if i >= maxVarintLen32 {
			return 0, 0, ErrVarintOverflow
		}
		b := buf[i]
		v |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncatedVarint
}
