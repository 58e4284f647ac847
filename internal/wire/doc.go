// Package wire implements the nodelink binary wire format.
//
// Every message on the socket is framed identically:
//
//	Byte 0:  Preamble (always 0x00)
//	Bytes+:  Varint payload length (counts type varint + payload bytes)
//	Bytes+:  Varint message type
//	Bytes+:  Payload
//
// # Varints
//
// Integers travel as base-128 varints: 7 data bits per byte, low group
// first, continuation bit 0x80 on every byte except the last. The protocol
// only uses 32-bit unsigned values, so a varint longer than 5 bytes is an
// overflow error.
//
// # Payload fields
//
// Payloads are sequences of tagged fields, read until the declared length
// is exhausted. Each field starts with a varint tag (field number << 3 |
// wire kind) followed by the value. Three wire kinds are used:
//
//   - 0: varint (booleans, small integers)
//   - 2: length-delimited (strings)
//   - 5: 32-bit fixed, little endian (entity keys, IEEE-754 floats)
//
// Unknown fields are skipped, which lets either peer add fields without
// breaking the other.
//
// # Thread Safety
//
// All functions in this package are pure and safe for concurrent use.
package wire
