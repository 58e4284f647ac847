// Package client implements the controller side of the node protocol.
//
// A Connection dials a device lazily: the first operation establishes the
// TCP connection and runs the hello/connect handshake. Responses are
// demultiplexed by message type - the protocol carries no request
// correlation, so at most one request of a given type may be in flight at
// a time.
//
// State updates pushed by the device after SubscribeStates are delivered
// on the channel SubscribeStates returns. The channel is closed when the
// connection is torn down, so consumers can range over it.
//
// This layer does not retry: when the connection drops, in-flight
// operations fail with ErrNotConnected and the caller decides whether to
// call again (which reconnects) or give up.
package client
