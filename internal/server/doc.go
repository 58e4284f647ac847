// Package server implements the device side of the nodelink protocol:
// a TCP server that exposes the node's entity registry to one controller.
//
// # Connection lifecycle
//
// An accepted connection walks a fixed ladder of phases:
//
//	hello → connected (unauthenticated) → authenticated → authenticated+subscribed
//
// The HelloRequest always succeeds and is answered with the server
// identifier. ConnectRequest validates the configured password; failure
// closes the connection. Requests that require authentication
// (device-info, list-entities, subscribe, commands) arriving earlier are
// silently ignored — no response, no error to the peer — so an
// unauthenticated peer learns nothing about the device.
//
// # Single-client policy
//
// At most one connection is active at a time. A second incoming
// connection is closed at accept, before any handshake byte is
// exchanged. This keeps the registry's push target a singleton.
//
// # Error handling
//
// A bad preamble byte drops one byte and resynchronises; a frame
// declaring more than the buffer capacity is fatal to that connection.
// Nothing in this package crashes the process: the worst case is a
// dropped connection.
package server
