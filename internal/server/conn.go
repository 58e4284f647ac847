package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nerrad567/nodelink/internal/entity"
	"github.com/nerrad567/nodelink/internal/wire"
)

// Connection-level constants.
const (
	// readChunkSize is the size of each socket read.
	readChunkSize = 1024

	// writeTimeout bounds each message write. The device never blocks
	// forever on a stalled controller.
	writeTimeout = 5 * time.Second
)

// phase is the connection state machine position.
type phase uint8

const (
	// phaseHello: accepted, waiting for the hello request.
	phaseHello phase = iota

	// phaseConnected: hello done, not yet authenticated.
	phaseConnected

	// phaseAuthenticated: connect handshake succeeded.
	phaseAuthenticated
)

// conn is one accepted controller connection walking the handshake,
// authentication and subscription phases.
//
// The read loop runs on a single goroutine; writes also come from the
// registry's push path, so they are serialised with writeMu.
type conn struct {
	srv    *Server
	sock   net.Conn
	remote string

	// mu guards phase and subscribed.
	mu         sync.Mutex
	phase      phase
	subscribed bool

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Ensure conn implements the registry's push target.
var _ entity.Sink = (*conn)(nil)

func newConn(s *Server, sock net.Conn) *conn {
	return &conn{
		srv:    s,
		sock:   sock,
		remote: sock.RemoteAddr().String(),
		closed: make(chan struct{}),
	}
}

// serve runs the receive loop until the socket closes or a fatal protocol
// error occurs. It never returns an error: device-side failures tear down
// the connection, nothing more.
func (c *conn) serve() {
	defer c.close()

	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)

	for {
		n, err := c.sock.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var fatal bool
			buf, fatal = c.drain(buf)
			if fatal {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// drain decodes and dispatches every complete frame in buf, returning the
// remaining bytes. A bad preamble drops a single byte and retries,
// resynchronising the stream; an oversized or corrupt frame is fatal.
func (c *conn) drain(buf []byte) (rest []byte, fatal bool) {
	for {
		msg, consumed, err := wire.DecodeMessage(buf)
		if err != nil {
			if errors.Is(err, wire.ErrBadPreamble) {
				c.srv.framingErrors.Add(1)
				c.srv.log().Debug("dropping byte to resynchronise", "remote", c.remote)
				buf = buf[1:]
				continue
			}
			c.srv.framingErrors.Add(1)
			c.srv.log().Warn("fatal framing error, closing connection",
				"remote", c.remote, "error", err)
			return nil, true
		}
		if msg == nil {
			return buf, false
		}

		buf = buf[consumed:]
		c.srv.messagesRx.Add(1)
		if !c.handle(msg) {
			return nil, true
		}
	}
}

// handle dispatches one decoded message according to the current phase.
// Returns false when the connection should close.
func (c *conn) handle(msg *wire.Message) bool {
	switch msg.Type {
	case wire.TypeHelloRequest:
		return c.handleHello()
	case wire.TypeConnectRequest:
		return c.handleConnect(msg.Payload)
	case wire.TypeDisconnectRequest:
		c.srv.log().Info("disconnect requested", "remote", c.remote)
		return false
	case wire.TypePingRequest:
		return c.handlePing()
	case wire.TypeDeviceInfoRequest:
		return c.handleDeviceInfo()
	case wire.TypeListEntitiesRequest:
		return c.handleListEntities()
	case wire.TypeSubscribeStatesRequest:
		return c.handleSubscribe()
	case wire.TypeSwitchCommandRequest:
		return c.handleSwitchCommand(msg.Payload)
	case wire.TypeLightCommandRequest:
		return c.handleLightCommand(msg.Payload)
	default:
		// Unknown types keep the connection open: a newer controller
		// may speak messages this firmware predates.
		c.srv.log().Debug("ignoring unknown message type",
			"remote", c.remote, "type", msg.Type)
		return true
	}
}

func (c *conn) handleHello() bool {
	c.mu.Lock()
	if c.phase == phaseHello {
		c.phase = phaseConnected
	}
	c.mu.Unlock()

	resp := wire.HelloResponse{ServerInfo: c.srv.cfg.ServerInfo}
	return c.send(wire.TypeHelloResponse, resp.Encode())
}

func (c *conn) handleConnect(payload []byte) bool {
	c.mu.Lock()
	helloDone := c.phase != phaseHello
	c.mu.Unlock()
	if !helloDone {
		// The handshake ladder starts with hello; a connect before it
		// is ignored like any other premature request.
		c.srv.log().Debug("ignoring connect before hello", "remote", c.remote)
		return true
	}

	req, err := wire.ParseConnectRequest(payload)
	if err != nil {
		c.srv.log().Warn("malformed connect request", "remote", c.remote, "error", err)
		return false
	}

	if c.srv.cfg.Password != "" && req.Password != c.srv.cfg.Password {
		c.srv.log().Warn("connect rejected: invalid password", "remote", c.remote)
		// Reply, then close: the handshake is not retried on one
		// connection.
		c.send(wire.TypeConnectResponse, wire.ConnectResponse{InvalidPassword: true}.Encode())
		return false
	}

	c.mu.Lock()
	c.phase = phaseAuthenticated
	c.mu.Unlock()

	c.srv.log().Info("controller authenticated", "remote", c.remote)
	return c.send(wire.TypeConnectResponse, wire.ConnectResponse{}.Encode())
}

func (c *conn) handlePing() bool {
	c.mu.Lock()
	helloDone := c.phase != phaseHello
	c.mu.Unlock()
	if !helloDone {
		return true
	}
	return c.send(wire.TypePingResponse, nil)
}

// authenticated reports whether the connect handshake has completed.
// Requests requiring it are silently ignored otherwise: answering an
// unauthenticated peer, even with an error, would disclose information.
func (c *conn) authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == phaseAuthenticated
}

func (c *conn) handleDeviceInfo() bool {
	if !c.authenticated() {
		c.srv.log().Debug("ignoring unauthenticated device-info request", "remote", c.remote)
		return true
	}
	return c.send(wire.TypeDeviceInfoResponse, c.srv.cfg.Info.Encode())
}

func (c *conn) handleListEntities() bool {
	if !c.authenticated() {
		c.srv.log().Debug("ignoring unauthenticated list-entities request", "remote", c.remote)
		return true
	}

	for _, e := range c.srv.registry.Entities() {
		entry := wire.EntityEntry{Name: e.Name, Key: uint32(e.Key)}
		if !c.send(listEntityType(e.Kind), entry.Encode()) {
			return false
		}
	}
	return c.send(wire.TypeListEntitiesDoneResponse, nil)
}

// listEntityType maps an entity kind to its list-entities response type.
func listEntityType(kind entity.Kind) uint32 {
	switch kind {
	case entity.KindBinarySensor:
		return wire.TypeListEntitiesBinarySensorResponse
	case entity.KindSensor:
		return wire.TypeListEntitiesSensorResponse
	case entity.KindSwitch:
		return wire.TypeListEntitiesSwitchResponse
	default:
		return wire.TypeListEntitiesLightResponse
	}
}

func (c *conn) handleSubscribe() bool {
	if !c.authenticated() {
		c.srv.log().Debug("ignoring unauthenticated subscribe request", "remote", c.remote)
		return true
	}

	c.mu.Lock()
	c.subscribed = true
	c.mu.Unlock()

	// Snapshot before deltas: the registry installs the sink and replays
	// every entity's current state in one critical section, so a racing
	// update cannot slip a delta in front of the snapshot.
	c.srv.registry.Subscribe(c)
	return true
}

func (c *conn) handleSwitchCommand(payload []byte) bool {
	if !c.authenticated() {
		c.srv.log().Debug("ignoring unauthenticated switch command", "remote", c.remote)
		return true
	}

	cmd, err := wire.ParseSwitchCommand(payload)
	if err != nil {
		c.srv.log().Warn("malformed switch command", "remote", c.remote, "error", err)
		return true
	}
	if c.srv.handler == nil {
		c.srv.log().Warn("no command handler, dropping switch command", "key", cmd.Key)
		return true
	}
	if err := c.srv.handler.HandleSwitchCommand(entity.Key(cmd.Key), cmd.State); err != nil {
		c.srv.log().Warn("switch command failed", "key", cmd.Key, "error", err)
	}
	return true
}

func (c *conn) handleLightCommand(payload []byte) bool {
	if !c.authenticated() {
		c.srv.log().Debug("ignoring unauthenticated light command", "remote", c.remote)
		return true
	}

	cmd, err := wire.ParseLightCommand(payload)
	if err != nil {
		c.srv.log().Warn("malformed light command", "remote", c.remote, "error", err)
		return true
	}
	if c.srv.handler == nil {
		c.srv.log().Warn("no command handler, dropping light command", "key", cmd.Key)
		return true
	}
	if err := c.srv.handler.HandleLightCommand(entity.Key(cmd.Key), cmd); err != nil {
		c.srv.log().Warn("light command failed", "key", cmd.Key, "error", err)
	}
	return true
}

// SendState implements entity.Sink: encode and push one entity's state.
// Called from the registry on every update while this connection is
// subscribed.
func (c *conn) SendState(e entity.Entity) error {
	select {
	case <-c.closed:
		return ErrNotConnected
	default:
	}

	var msgType uint32
	var payload []byte

	switch e.Kind {
	case entity.KindBinarySensor:
		msgType = wire.TypeBinarySensorStateResponse
		payload = wire.BinarySensorState{Key: uint32(e.Key), State: e.State.On}.Encode()
	case entity.KindSensor:
		msgType = wire.TypeSensorStateResponse
		payload = wire.SensorState{Key: uint32(e.Key), State: e.State.Value, Missing: e.State.Missing}.Encode()
	case entity.KindSwitch:
		msgType = wire.TypeSwitchStateResponse
		payload = wire.SwitchState{Key: uint32(e.Key), State: e.State.On}.Encode()
	case entity.KindLight:
		msgType = wire.TypeLightStateResponse
		payload = wire.LightState{
			Key:        uint32(e.Key),
			On:         e.State.On,
			Brightness: e.State.Brightness,
			Red:        e.State.Red,
			Green:      e.State.Green,
			Blue:       e.State.Blue,
		}.Encode()
	default:
		return fmt.Errorf("unhandled entity kind %d", e.Kind)
	}

	if !c.send(msgType, payload) {
		return ErrNotConnected
	}
	return nil
}

// send writes one framed message. Returns false if the write fails, which
// callers treat as "close the connection".
func (c *conn) send(msgType uint32, payload []byte) bool {
	frame := wire.EncodeMessage(msgType, payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.sock.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return false
	}
	if _, err := c.sock.Write(frame); err != nil {
		c.srv.log().Warn("write failed", "remote", c.remote, "error", err)
		return false
	}
	c.srv.messagesTx.Add(1)
	return true
}

// close tears the connection down: the push target is detached before the
// socket closes so the registry never pushes into a dead sink.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		wasSubscribed := c.subscribed
		c.subscribed = false
		c.mu.Unlock()

		if wasSubscribed {
			c.srv.registry.SetSink(nil)
		}
		c.sock.Close()
	})
}
