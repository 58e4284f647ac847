package wire

import "errors"

// Domain errors for the wire package.
var (
	// ErrTruncatedVarint is returned when a buffer ends before the
	// terminating byte of a varint appears.
	ErrTruncatedVarint = errors.New("wire: truncated varint")

	// ErrVarintOverflow is returned when a varint uses more than 5 bytes,
	// which cannot represent a 32-bit value.
	ErrVarintOverflow = errors.New("wire: varint overflows 32 bits")

	// ErrBadPreamble is returned when a frame does not start with the
	// 0x00 preamble byte. The caller should drop one byte and retry to
	// resynchronise against an alignment error.
	ErrBadPreamble = errors.New("wire: bad preamble byte")

	// ErrFrameTooLarge is returned when a frame declares a payload length
	// exceeding MaxFrameSize. This is fatal to the connection: the stream
	// cannot be safely skipped past an arbitrarily large frame.
	ErrFrameTooLarge = errors.New("wire: declared frame length exceeds maximum")

	// ErrMalformedField is returned when a payload field cannot be parsed.
	ErrMalformedField = errors.New("wire: malformed payload field")
)
