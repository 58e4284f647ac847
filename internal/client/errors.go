package client

import "errors"

// Sentinel errors for the controller connection. Wrapped values carry
// detail; match with errors.Is.
var (
	// ErrConnectionFailed indicates dialing or the hello/connect
	// handshake failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidPassword indicates the device rejected the connect
	// request's password.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrNotConnected indicates the connection was torn down while an
	// operation was in flight.
	ErrNotConnected = errors.New("not connected")

	// ErrRequestTimeout indicates the device did not answer within the
	// request timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrClosed indicates the connection has been closed and cannot be
	// reused.
	ErrClosed = errors.New("connection closed")
)
