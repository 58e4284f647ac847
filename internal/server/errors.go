package server

import "errors"

// Domain errors for the server package.
var (
	// ErrAlreadyStarted is returned when Start is called on a running
	// server.
	ErrAlreadyStarted = errors.New("server: already started")

	// ErrClosed is returned for operations on a closed server.
	ErrClosed = errors.New("server: closed")

	// ErrNotConnected is returned when a state push is attempted on a
	// connection that has gone away.
	ErrNotConnected = errors.New("server: connection closed")
)
