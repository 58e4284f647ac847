package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/nodelink/internal/entity"
	"github.com/nerrad567/nodelink/internal/wire"
)

// Default timeouts and buffer sizes.
const (
	// DefaultPort is the device's listen port.
	DefaultPort = 6053

	// defaultConnectTimeout is the maximum time to wait for dial plus
	// handshake.
	defaultConnectTimeout = 10 * time.Second

	// defaultRequestTimeout bounds each request/response operation.
	defaultRequestTimeout = 10 * time.Second

	// defaultWriteTimeout is the timeout for write operations.
	defaultWriteTimeout = 5 * time.Second

	// pingWait is how long Ping waits for the pong. Deliberately short:
	// a pong proves the device is alive, a miss proves nothing.
	pingWait = 100 * time.Millisecond

	// readChunkSize is the size of each socket read.
	readChunkSize = 1024

	// updateQueueSize is the buffer of the state update channel.
	// Updates are dropped when the consumer falls this far behind.
	updateQueueSize = 64

	// listQueueSize buffers list-entities responses during collection.
	listQueueSize = entity.DefaultCapacity + 1
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Config holds device connection configuration.
type Config struct {
	// Addr is the device's "host:port" address.
	Addr string

	// Password authenticates the connect request. Empty is valid when
	// the device runs open.
	Password string

	// ConnectTimeout is the maximum time for dial plus handshake.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// RequestTimeout bounds each request/response operation.
	// Default: 10 seconds.
	RequestTimeout time.Duration
}

// Stats holds operational statistics.
type Stats struct {
	MessagesTx     uint64
	MessagesRx     uint64
	FramingErrors  uint64
	UpdatesDropped uint64 // Updates dropped due to a slow consumer
	Connected      bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// EntityInfo describes one entity the device exposes.
type EntityInfo struct {
	Key  entity.Key
	Name string
	Kind entity.Kind
}

// StateUpdate is one pushed state change.
type StateUpdate struct {
	Key   entity.Key
	State entity.State
}

// Connection is a lazy controller connection to one device.
//
// Thread safety: all methods are safe for concurrent use, but the
// protocol has no request correlation, so concurrent requests of the
// same type race for the same response.
type Connection struct {
	cfg Config

	// connectMu serialises connection establishment.
	connectMu sync.Mutex

	// mu guards sock, connected, sessionDone and updates.
	mu          sync.Mutex
	sock        net.Conn
	connected   bool
	sessionDone chan struct{}
	updates     chan StateUpdate

	writeMu sync.Mutex

	// waiters routes responses to pending requests, keyed by message
	// type. One waiter per type.
	waiterMu sync.Mutex
	waiters  map[uint32]chan *wire.Message

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	messagesTx     atomic.Uint64
	messagesRx     atomic.Uint64
	framingErrors  atomic.Uint64
	updatesDropped atomic.Uint64
}

// New creates a connection to the device at cfg.Addr. No network
// activity happens until the first operation.
func New(cfg Config) *Connection {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Connection{
		cfg:     cfg,
		done:    newCloseOnce(),
		waiters: make(map[uint32]chan *wire.Message),
	}
}

// SetLogger sets the logger for this connection.
func (c *Connection) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Connection) log() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// IsConnected reports whether the handshake has completed and the
// connection is live.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Stats returns current operational counters.
func (c *Connection) Stats() Stats {
	return Stats{
		MessagesTx:     c.messagesTx.Load(),
		MessagesRx:     c.messagesRx.Load(),
		FramingErrors:  c.framingErrors.Load(),
		UpdatesDropped: c.updatesDropped.Load(),
		Connected:      c.IsConnected(),
	}
}

func (c *Connection) isClosed() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

// ensureConnected dials and handshakes if the connection is not live.
func (c *Connection) ensureConnected(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.IsConnected() {
		return nil
	}
	return c.connect(ctx)
}

// connect dials the device and runs the hello/connect handshake.
// Called with connectMu held.
func (c *Connection) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	sock, err := dialer.DialContext(dialCtx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, c.cfg.Addr, err)
	}

	sessionDone := make(chan struct{})
	c.mu.Lock()
	c.sock = sock
	c.sessionDone = sessionDone
	c.mu.Unlock()

	// The receive loop must run before the handshake: responses arrive
	// through it.
	c.wg.Add(1)
	go c.receiveLoop(sock)

	if err := c.handshake(dialCtx, sessionDone); err != nil {
		c.teardown()
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.log().Info("connected", "addr", c.cfg.Addr)
	return nil
}

func (c *Connection) handshake(ctx context.Context, sessionDone chan struct{}) error {
	helloCh := c.addWaiter(wire.TypeHelloResponse)
	defer c.removeWaiter(wire.TypeHelloResponse)

	if err := c.send(wire.TypeHelloRequest, nil); err != nil {
		return fmt.Errorf("%w: hello: %w", ErrConnectionFailed, err)
	}
	msg, err := c.await(ctx, sessionDone, helloCh)
	if err != nil {
		return fmt.Errorf("%w: hello: %w", ErrConnectionFailed, err)
	}
	hello, err := wire.ParseHelloResponse(msg.Payload)
	if err != nil {
		return fmt.Errorf("%w: hello: %w", ErrConnectionFailed, err)
	}
	c.log().Debug("hello complete", "server", hello.ServerInfo)

	connectCh := c.addWaiter(wire.TypeConnectResponse)
	defer c.removeWaiter(wire.TypeConnectResponse)

	req := wire.ConnectRequest{Password: c.cfg.Password}
	if err := c.send(wire.TypeConnectRequest, req.Encode()); err != nil {
		return fmt.Errorf("%w: connect: %w", ErrConnectionFailed, err)
	}
	msg, err = c.await(ctx, sessionDone, connectCh)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", ErrConnectionFailed, err)
	}
	resp, err := wire.ParseConnectResponse(msg.Payload)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", ErrConnectionFailed, err)
	}
	if resp.InvalidPassword {
		return ErrInvalidPassword
	}
	return nil
}

// session returns the live session's teardown signal.
func (c *Connection) session() (chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, ErrNotConnected
	}
	return c.sessionDone, nil
}

// receiveLoop reads frames off sock until it closes or framing breaks
// beyond recovery, then tears the session down.
func (c *Connection) receiveLoop(sock net.Conn) {
	defer c.wg.Done()
	defer c.teardown()

	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)

	for {
		n, err := sock.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var fatal bool
			buf, fatal = c.drain(buf)
			if fatal {
				return
			}
		}
		if err != nil {
			if !c.isClosed() {
				c.log().Debug("receive loop ended", "error", err)
			}
			return
		}
	}
}

// drain decodes every complete frame in buf. Mirrors the device side:
// a bad preamble drops one byte and resynchronises, an oversized or
// corrupt frame is fatal.
func (c *Connection) drain(buf []byte) (rest []byte, fatal bool) {
	for {
		msg, consumed, err := wire.DecodeMessage(buf)
		if err != nil {
			if errors.Is(err, wire.ErrBadPreamble) {
				c.framingErrors.Add(1)
				buf = buf[1:]
				continue
			}
			c.framingErrors.Add(1)
			c.log().Warn("fatal framing error", "error", err)
			return nil, true
		}
		if msg == nil {
			return buf, false
		}

		buf = buf[consumed:]
		c.messagesRx.Add(1)
		c.dispatch(msg)
	}
}

// dispatch routes one message: pushed states go to the update channel,
// everything else to the waiter registered for its type.
func (c *Connection) dispatch(msg *wire.Message) {
	switch msg.Type {
	case wire.TypeBinarySensorStateResponse,
		wire.TypeSensorStateResponse,
		wire.TypeSwitchStateResponse,
		wire.TypeLightStateResponse:
		c.handleState(msg)
		return
	}

	c.waiterMu.Lock()
	ch := c.waiters[msg.Type]
	c.waiterMu.Unlock()

	if ch == nil {
		c.log().Debug("ignoring unexpected message", "type", msg.Type)
		return
	}
	select {
	case ch <- msg:
	default:
		// Waiter buffer full: a duplicate response nobody is waiting
		// for any more.
	}
}

func (c *Connection) handleState(msg *wire.Message) {
	update, err := parseStateUpdate(msg)
	if err != nil {
		c.log().Warn("malformed state message", "type", msg.Type, "error", err)
		return
	}

	// The send happens under mu so teardown and SubscribeStates cannot
	// close the channel between the load and the send; a send on a
	// closed channel panics even inside a select. The send itself never
	// blocks, so the lock is not held waiting on the consumer.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updates == nil {
		return
	}

	select {
	case c.updates <- update:
	default:
		// Consumer too slow. States are absolute, so dropping an
		// update loses history, not correctness.
		c.updatesDropped.Add(1)
	}
}

func parseStateUpdate(msg *wire.Message) (StateUpdate, error) {
	switch msg.Type {
	case wire.TypeBinarySensorStateResponse:
		s, err := wire.ParseBinarySensorState(msg.Payload)
		if err != nil {
			return StateUpdate{}, err
		}
		return StateUpdate{Key: entity.Key(s.Key), State: entity.BinarySensorState(s.State)}, nil
	case wire.TypeSensorStateResponse:
		s, err := wire.ParseSensorState(msg.Payload)
		if err != nil {
			return StateUpdate{}, err
		}
		state := entity.SensorState(s.State)
		state.Missing = s.Missing
		return StateUpdate{Key: entity.Key(s.Key), State: state}, nil
	case wire.TypeSwitchStateResponse:
		s, err := wire.ParseSwitchState(msg.Payload)
		if err != nil {
			return StateUpdate{}, err
		}
		return StateUpdate{Key: entity.Key(s.Key), State: entity.SwitchState(s.State)}, nil
	default:
		s, err := wire.ParseLightState(msg.Payload)
		if err != nil {
			return StateUpdate{}, err
		}
		return StateUpdate{
			Key:   entity.Key(s.Key),
			State: entity.LightState(s.On, s.Brightness, s.Red, s.Green, s.Blue),
		}, nil
	}
}

// addWaiter registers a response channel for msgType, replacing any
// previous waiter.
func (c *Connection) addWaiter(msgType uint32) chan *wire.Message {
	ch := make(chan *wire.Message, 1)
	c.waiterMu.Lock()
	c.waiters[msgType] = ch
	c.waiterMu.Unlock()
	return ch
}

func (c *Connection) removeWaiter(msgType uint32) {
	c.waiterMu.Lock()
	delete(c.waiters, msgType)
	c.waiterMu.Unlock()
}

// await blocks for a response on ch, a torn-down session or context end.
func (c *Connection) await(ctx context.Context, sessionDone chan struct{}, ch chan *wire.Message) (*wire.Message, error) {
	select {
	case msg := <-ch:
		return msg, nil
	case <-sessionDone:
		// The device may answer and close in one breath; a buffered
		// response beats the teardown.
		select {
		case msg := <-ch:
			return msg, nil
		default:
		}
		return nil, ErrNotConnected
	case <-c.done.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrRequestTimeout, ctx.Err())
	}
}

// send writes one framed message.
func (c *Connection) send(msgType uint32, payload []byte) error {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		return ErrNotConnected
	}

	frame := wire.EncodeMessage(msgType, payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := sock.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := sock.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.messagesTx.Add(1)
	return nil
}

// request sends a message and waits for the response type.
func (c *Connection) request(ctx context.Context, reqType uint32, payload []byte, respType uint32) (*wire.Message, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	sessionDone, err := c.session()
	if err != nil {
		return nil, err
	}

	ch := c.addWaiter(respType)
	defer c.removeWaiter(respType)

	if err := c.send(reqType, payload); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.await(ctx, sessionDone, ch)
}

// Ping checks device liveness with deliberately weak semantics: true
// means the ping was written and the session stayed up through a short
// wait, NOT that a pong matched this request - the pong may simply be
// queued behind state pushes. False is reserved for a session that tore
// down or a context that ended, and always carries an error.
func (c *Connection) Ping(ctx context.Context) (bool, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return false, err
	}
	sessionDone, err := c.session()
	if err != nil {
		return false, err
	}

	ch := c.addWaiter(wire.TypePingResponse)
	defer c.removeWaiter(wire.TypePingResponse)

	if err := c.send(wire.TypePingRequest, nil); err != nil {
		return false, err
	}

	select {
	case <-ch:
		return true, nil
	case <-time.After(pingWait):
		// No pong inside the window, but the session is still up.
		return true, nil
	case <-sessionDone:
		return false, ErrNotConnected
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %w", ErrRequestTimeout, ctx.Err())
	}
}

// GetDeviceInfo fetches the device's identity block.
func (c *Connection) GetDeviceInfo(ctx context.Context) (wire.DeviceInfo, error) {
	msg, err := c.request(ctx, wire.TypeDeviceInfoRequest, nil, wire.TypeDeviceInfoResponse)
	if err != nil {
		return wire.DeviceInfo{}, err
	}
	info, err := wire.ParseDeviceInfo(msg.Payload)
	if err != nil {
		return wire.DeviceInfo{}, fmt.Errorf("parse device info: %w", err)
	}
	return info, nil
}

// ListEntities fetches the device's entity table. Entries arrive in the
// device's registration order.
func (c *Connection) ListEntities(ctx context.Context) ([]EntityInfo, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	sessionDone, err := c.session()
	if err != nil {
		return nil, err
	}

	// All list response types funnel into one buffered channel; the
	// done marker terminates collection.
	listCh := make(chan *wire.Message, listQueueSize)
	listTypes := []uint32{
		wire.TypeListEntitiesBinarySensorResponse,
		wire.TypeListEntitiesSensorResponse,
		wire.TypeListEntitiesSwitchResponse,
		wire.TypeListEntitiesLightResponse,
		wire.TypeListEntitiesDoneResponse,
	}
	c.waiterMu.Lock()
	for _, t := range listTypes {
		c.waiters[t] = listCh
	}
	c.waiterMu.Unlock()
	defer func() {
		c.waiterMu.Lock()
		for _, t := range listTypes {
			delete(c.waiters, t)
		}
		c.waiterMu.Unlock()
	}()

	if err := c.send(wire.TypeListEntitiesRequest, nil); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var entities []EntityInfo
	for {
		msg, err := c.await(ctx, sessionDone, listCh)
		if err != nil {
			return nil, err
		}
		if msg.Type == wire.TypeListEntitiesDoneResponse {
			return entities, nil
		}

		entry, err := wire.ParseEntityEntry(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("parse entity entry: %w", err)
		}
		entities = append(entities, EntityInfo{
			Key:  entity.Key(entry.Key),
			Name: entry.Name,
			Kind: kindForListType(msg.Type),
		})
	}
}

func kindForListType(msgType uint32) entity.Kind {
	switch msgType {
	case wire.TypeListEntitiesBinarySensorResponse:
		return entity.KindBinarySensor
	case wire.TypeListEntitiesSensorResponse:
		return entity.KindSensor
	case wire.TypeListEntitiesSwitchResponse:
		return entity.KindSwitch
	default:
		return entity.KindLight
	}
}

// SubscribeStates asks the device to push state changes. The device
// first replays every entity's current state, then pushes each change
// as it happens.
//
// The returned channel is closed when the connection tears down.
// Updates are dropped (and counted) if the consumer lags more than the
// channel buffer.
func (c *Connection) SubscribeStates(ctx context.Context) (<-chan StateUpdate, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	ch := make(chan StateUpdate, updateQueueSize)
	c.mu.Lock()
	// Closed under mu: the dispatcher sends under the same lock, so it
	// can never send on the channel being retired.
	if c.updates != nil {
		close(c.updates)
	}
	c.updates = ch
	c.mu.Unlock()

	if err := c.send(wire.TypeSubscribeStatesRequest, nil); err != nil {
		return nil, err
	}
	return ch, nil
}

// SendSwitchCommand requests a switch state change. Fire and forget:
// confirmation arrives as a pushed state update once the device applies
// it.
func (c *Connection) SendSwitchCommand(ctx context.Context, key entity.Key, on bool) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	cmd := wire.SwitchCommand{Key: uint32(key), State: on}
	return c.send(wire.TypeSwitchCommandRequest, cmd.Encode())
}

// SendLightCommand requests a light change. Fields with their has-flag
// unset are left untouched by the device.
func (c *Connection) SendLightCommand(ctx context.Context, key entity.Key, cmd wire.LightCommand) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	cmd.Key = uint32(key)
	return c.send(wire.TypeLightCommandRequest, cmd.Encode())
}

// Disconnect tells the device we are leaving, then tears the session
// down. The Connection stays usable: the next operation reconnects.
func (c *Connection) Disconnect(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	// Best effort: the device closes on receipt, a failed write just
	// means it finds out from the socket instead.
	if err := c.send(wire.TypeDisconnectRequest, nil); err != nil {
		c.log().Debug("disconnect send failed", "error", err)
	}
	c.teardown()
	return nil
}

// teardown closes the socket and fails everything waiting on the
// session. Safe to call repeatedly.
func (c *Connection) teardown() {
	c.mu.Lock()
	sock := c.sock
	sessionDone := c.sessionDone
	c.sock = nil
	c.sessionDone = nil
	c.connected = false
	// The updates channel is closed under mu so no dispatcher send can
	// land on it afterwards.
	if c.updates != nil {
		close(c.updates)
		c.updates = nil
	}
	c.mu.Unlock()

	if sessionDone != nil {
		close(sessionDone)
	}
	if sock != nil {
		sock.Close()
	}
}

// Close shuts the connection down permanently.
// Safe to call multiple times.
func (c *Connection) Close() error {
	c.done.Close()
	c.teardown()
	c.wg.Wait()
	return nil
}
