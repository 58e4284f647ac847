package wire

// Framing constants.
const (
	// Preamble is the fixed marker byte starting every frame.
	Preamble = 0x00

	// MaxFrameSize is the maximum accepted payload length (type varint +
	// payload bytes). Frames declaring more than this are rejected as
	// fatal: skipping an oversized frame safely is not possible.
	MaxFrameSize = 8192
)

// Message is one decoded frame: a numeric type tag and its raw payload.
type Message struct {
	// Type selects the message semantics (see the Type* constants).
	Type uint32

	// Payload holds the tagged-field bytes. May be empty.
	Payload []byte
}

// EncodeMessage encodes a complete frame for the given message type and
// payload.
//
// The output is: 0x00 | varint(len(type varint)+len(payload)) |
// varint(type) | payload.
func EncodeMessage(msgType uint32, payload []byte) []byte {
	typeLen := VarintLen(msgType)
	frameLen := uint32(typeLen + len(payload))

	buf := make([]byte, 0, 1+maxVarintLen32+typeLen+len(payload))
	buf = append(buf, Preamble)
	buf = AppendVarint(buf, frameLen)
	buf = AppendVarint(buf, msgType)
	return append(buf, payload...)
}

// DecodeMessage attempts to decode one frame from the start of buf.
//
// Returns:
//   - *Message: Decoded message, or nil if buf does not yet hold a
//     complete frame ("need more bytes")
//   - int: Number of bytes to drop from buf (0 when incomplete)
//   - error: ErrBadPreamble if buf[0] is not 0x00 (drop one byte and
//     retry), ErrFrameTooLarge if the declared length exceeds
//     MaxFrameSize (fatal), ErrVarintOverflow on a corrupt length or
//     type varint (fatal)
func DecodeMessage(buf []byte) (*Message, int, error) {
	if len(buf) == 0 {
		return nil, 0, nil
	}
	if buf[0] != Preamble {
		return nil, 0, ErrBadPreamble
	}

	frameLen, lenBytes, err := DecodeVarint(buf[1:])
	if err != nil {
		if err == ErrTruncatedVarint {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	if frameLen > MaxFrameSize {
		return nil, 0, ErrFrameTooLarge
	}

	body := buf[1+lenBytes:]
	if uint32(len(body)) < frameLen {
		return nil, 0, nil
	}
	body = body[:frameLen]

	msgType, typeBytes, err := DecodeVarint(body)
	if err != nil {
		// Declared length too short for the type varint, or a corrupt
		// varint. Either way framing is broken.
		return nil, 0, err
	}

	payload := make([]byte, len(body)-typeBytes)
	copy(payload, body[typeBytes:])

	consumed := 1 + lenBytes + int(frameLen)
	return &Message{Type: msgType, Payload: payload}, consumed, nil
}
