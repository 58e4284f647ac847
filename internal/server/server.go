package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/nodelink/internal/entity"
	"github.com/nerrad567/nodelink/internal/wire"
)

// DefaultPort is the protocol's default TCP port.
const DefaultPort = 6053

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CommandHandler is the hardware-control collaborator. The server decodes
// switch/light command messages and hands them here; the handler applies
// them and reports the resulting state through Registry.UpdateState, so
// the command's effect reaches the controller as an ordinary state push.
// There is no command-ack path.
type CommandHandler interface {
	HandleSwitchCommand(key entity.Key, on bool) error
	HandleLightCommand(key entity.Key, cmd wire.LightCommand) error
}

// Config holds server configuration.
type Config struct {
	// Addr is the TCP listen address. Default ":6053".
	Addr string

	// Password gates the connect handshake. Empty disables password
	// checking: any ConnectRequest authenticates.
	Password string

	// ServerInfo is the human-readable identifier sent in the hello
	// response (typically "<name> (nodelink <version>)").
	ServerInfo string

	// Info is served in DeviceInfoResponse.
	Info wire.DeviceInfo
}

// Stats holds operational counters.
type Stats struct {
	ConnectionsTotal uint64
	RejectedTotal    uint64 // Connections refused by the single-client policy
	MessagesRx       uint64
	MessagesTx       uint64
	FramingErrors    uint64
}

// Server accepts controller connections and serves the protocol over the
// node's entity registry.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Server struct {
	cfg      Config
	registry *entity.Registry
	handler  CommandHandler

	listener net.Listener

	// Single-client policy: at most one live connection.
	activeMu sync.Mutex
	active   *conn

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	connectionsTotal atomic.Uint64
	rejectedTotal    atomic.Uint64
	messagesRx       atomic.Uint64
	messagesTx       atomic.Uint64
	framingErrors    atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a server over the given registry. handler may be nil, in
// which case command messages are logged and dropped.
func New(cfg Config, registry *entity.Registry, handler CommandHandler) *Server {
	if cfg.Addr == "" {
		cfg.Addr = fmt.Sprintf(":%d", DefaultPort)
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		done:     make(chan struct{}),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the server and its connections.
func (s *Server) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Server) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Start binds the listen address and begins accepting connections.
// It returns once the listener is bound; the accept loop runs in the
// background until Close.
//
// Parameters:
//   - ctx: Context for the bind (a cancelled context aborts startup)
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if s.listener != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = l

	s.wg.Add(1)
	go s.acceptLoop()

	s.log().Info("listening", "addr", l.Addr().String())
	return nil
}

// Addr returns the bound listen address, or nil before Start.
// Useful when the configured address uses port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop accepts connections, enforcing the single-client policy:
// while one connection is live, further accepts are closed immediately,
// before any handshake is performed.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		sock, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log().Warn("accept failed", "error", err)
			return
		}

		s.activeMu.Lock()
		if s.active != nil {
			s.activeMu.Unlock()
			s.rejectedTotal.Add(1)
			s.log().Info("rejecting second connection", "remote", sock.RemoteAddr().String())
			sock.Close()
			continue
		}
		c := newConn(s, sock)
		s.active = c
		s.activeMu.Unlock()

		s.connectionsTotal.Add(1)
		s.log().Info("controller connected", "remote", sock.RemoteAddr().String())

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.serve()
			s.release(c)
		}()
	}
}

// release clears the active connection slot after c finishes.
func (s *Server) release(c *conn) {
	s.activeMu.Lock()
	if s.active == c {
		s.active = nil
	}
	s.activeMu.Unlock()
	s.log().Info("controller disconnected", "remote", c.remote)
}

// Close stops the listener and tears down the active connection.
// Safe to call multiple times.
func (s *Server) Close() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.activeMu.Lock()
		active := s.active
		s.activeMu.Unlock()
		if active != nil {
			active.close()
		}
	})
	s.wg.Wait()
	return nil
}

// Stats returns current operational counters.
func (s *Server) Stats() Stats {
	return Stats{
		ConnectionsTotal: s.connectionsTotal.Load(),
		RejectedTotal:    s.rejectedTotal.Load(),
		MessagesRx:       s.messagesRx.Load(),
		MessagesTx:       s.messagesTx.Load(),
		FramingErrors:    s.framingErrors.Load(),
	}
}
