package entity

import (
	"fmt"
	"sync"
)

// DefaultCapacity is the registry capacity used when 0 is passed to
// NewRegistry. It mirrors the bounded entity table of the embedded
// firmware this protocol fronts.
const DefaultCapacity = 64

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink receives state pushes for the one subscribed connection.
// Implemented by the server's connection handler.
type Sink interface {
	// SendState encodes and sends a state message for the entity.
	// Errors are the sink's problem (a dead socket tears the
	// connection down); the registry does not retry.
	SendState(e Entity) error
}

// Observer is notified after every accepted state update. Used for
// history recording, MQTT mirroring and telemetry. Observers run on the
// updating goroutine and must not block.
type Observer func(e Entity)

// slot is one entry in the fixed-capacity entity arena.
type slot struct {
	key   Key
	name  string
	kind  Kind
	state State
}

// Registry owns all entity state on the device side.
//
// It holds a fixed-capacity arena of entity slots with the 32-bit key
// mapped to a slot index. Ownership is singular: nothing else holds
// entity state, and snapshots returned from lookups are copies.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	slots     []slot
	capacity  int
	index     map[Key]int
	sink      Sink
	observers []Observer
	logger    Logger
}

// NewRegistry creates a registry with the given slot capacity.
// A capacity of 0 selects DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		slots:    make([]slot, 0, capacity),
		capacity: capacity,
		index:    make(map[Key]int, capacity),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Register adds an entity and returns its derived key.
//
// Sensors start in the "missing" state; binary sensors, switches and
// lights start off. Registration happens once at startup when the surrounding
// system registers each configured component; entities are never removed
// during the process lifetime.
//
// Returns:
//   - Key: The entity's stable key
//   - error: ErrRegistryFull past capacity, ErrDuplicateKey if the
//     (name, kind) pair collides with an existing registration
func (r *Registry) Register(name string, kind Kind) (Key, error) {
	key := DeriveKey(name, kind)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[key]; exists {
		return 0, fmt.Errorf("%w: %q (%s)", ErrDuplicateKey, name, kind)
	}
	if len(r.slots) >= r.capacity {
		return 0, fmt.Errorf("%w: capacity %d", ErrRegistryFull, r.capacity)
	}

	// Only numeric sensors carry a missing marker on the wire, so only
	// they start missing; binary sensors, switches and lights start off.
	initial := State{Kind: kind}
	if kind == KindSensor {
		initial.Missing = true
	}

	r.index[key] = len(r.slots)
	r.slots = append(r.slots, slot{key: key, name: name, kind: kind, state: initial})

	r.logger.Debug("entity registered", "name", name, "kind", kind.String(), "key", uint32(key))
	return key, nil
}

// Find returns a snapshot of the entity with the given key.
func (r *Registry) Find(key Key) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[key]
	if !ok {
		return Entity{}, false
	}
	return r.snapshotByIndex(i), true
}

// Entities returns snapshots of all registered entities in registration
// order.
func (r *Registry) Entities() []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entity, 0, len(r.slots))
	for i := range r.slots {
		out = append(out, r.snapshotByIndex(i))
	}
	return out
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// UpdateState stores a new state for an entity and, if a connection is
// subscribed, immediately pushes a state message for it.
//
// This is the single mutation path: sensor readings and command results
// both land here, so a subscribed controller observes a command's effect
// exactly like any other state change.
//
// Returns:
//   - error: ErrUnknownKey or ErrKindMismatch; push failures are logged,
//     not returned (the sink owns its connection teardown)
func (r *Registry) UpdateState(key Key, state State) error {
	r.mu.Lock()
	i, ok := r.index[key]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownKey, uint32(key))
	}
	if r.slots[i].kind != state.Kind {
		r.mu.Unlock()
		return fmt.Errorf("%w: entity %q is %s, state is %s",
			ErrKindMismatch, r.slots[i].name, r.slots[i].kind, state.Kind)
	}

	r.slots[i].state = state
	snap := r.snapshotByIndex(i)
	sink := r.sink
	observers := r.observers
	logger := r.logger
	r.mu.Unlock()

	if sink != nil {
		if err := sink.SendState(snap); err != nil {
			logger.Warn("state push failed", "key", uint32(key), "error", err)
		}
	}
	for _, o := range observers {
		o(snap)
	}
	return nil
}

// SetSink installs the subscribed connection's push target. Pass nil when
// the connection closes. The single-connection policy makes this a
// singleton, not a fan-out list.
//
// When installing a live sink, use Subscribe instead: it couples the
// install with the snapshot replay so no delta can precede the snapshot.
func (r *Registry) SetSink(s Sink) {
	r.mu.Lock()
	r.sink = s
	r.mu.Unlock()
}

// Subscribe installs the sink and pushes the full snapshot, in
// registration order, inside one critical section. An UpdateState racing
// the subscription either lands before the sink is visible (its state is
// part of the snapshot) or blocks until the snapshot is fully sent, so
// the subscriber always observes snapshot, then deltas.
//
// The lock is held across the snapshot sends; SendState implementations
// must not call back into the registry.
func (r *Registry) Subscribe(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sink = s
	for i := range r.slots {
		snap := r.snapshotByIndex(i)
		if err := s.SendState(snap); err != nil {
			r.logger.Warn("initial state push failed", "key", uint32(snap.Key), "error", err)
			return
		}
	}
}

// AddObserver registers a state-change observer. Observers cannot be
// removed; they live as long as the process, like the entities they
// watch.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, o)
	r.mu.Unlock()
}

// snapshotByIndex copies slot i into an Entity. Caller holds r.mu.
func (r *Registry) snapshotByIndex(i int) Entity {
	s := r.slots[i]
	return Entity{Key: s.key, Name: s.name, Kind: s.kind, State: s.state}
}
