package mirror

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/nodelink/internal/config"
	"github.com/nerrad567/nodelink/internal/entity"
)

// publishQueueSize buffers state changes awaiting publication.
const publishQueueSize = 256

// publisher is the slice of Client the mirror needs; narrowed for
// tests.
type publisher interface {
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
	Close() error
}

// statePayload is the JSON shape published to entity state topics.
type statePayload struct {
	Key        uint32   `json:"key"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	On         *bool    `json:"on,omitempty"`
	Value      *float32 `json:"value,omitempty"`
	Missing    bool     `json:"missing,omitempty"`
	Brightness *float32 `json:"brightness,omitempty"`
	Red        *float32 `json:"red,omitempty"`
	Green      *float32 `json:"green,omitempty"`
	Blue       *float32 `json:"blue,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// Mirror reflects registry state changes onto MQTT topics.
//
// Wire it to the registry with AddObserver(m.Observe). Publishing runs
// on a background worker; when the queue is full the change is dropped
// and counted.
type Mirror struct {
	client publisher
	topics Topics
	queue  chan entity.Entity

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger Logger

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New connects to the broker and starts the mirror.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - deviceName: Node name used in topic paths
//   - logger: Optional logger (may be nil)
//
// Returns:
//   - *Mirror: Running mirror ready to observe the registry
//   - error: If the broker connection fails
func New(cfg config.MQTTConfig, deviceName string, logger Logger) (*Mirror, error) {
	topics := Topics{Prefix: cfg.TopicPrefix, Device: deviceName}

	client, err := ConnectClient(cfg, topics)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		client.SetLogger(logger)
	}

	return newMirror(client, topics, logger), nil
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func newMirror(client publisher, topics Topics, logger Logger) *Mirror {
	if logger == nil {
		logger = noopLogger{}
	}
	m := &Mirror{
		client: client,
		topics: topics,
		queue:  make(chan entity.Entity, publishQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

// Observe is the registry observer hook. Non-blocking.
func (m *Mirror) Observe(e entity.Entity) {
	select {
	case m.queue <- e:
	default:
		m.dropped.Add(1)
		if m.logger != nil {
			m.logger.Warn("mirror queue full, dropping state change",
				"key", uint32(e.Key), "name", e.Name)
		}
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			m.drainQueue()
			return
		case e := <-m.queue:
			m.publish(e)
		}
	}
}

func (m *Mirror) drainQueue() {
	for {
		select {
		case e := <-m.queue:
			m.publish(e)
		default:
			return
		}
	}
}

func (m *Mirror) publish(e entity.Entity) {
	topic := m.topics.EntityState(e.Kind.String(), e.Name)
	payload, err := json.Marshal(buildStatePayload(e))
	if err != nil {
		if m.logger != nil {
			m.logger.Error("marshalling state payload failed", "name", e.Name, "error", err)
		}
		return
	}

	if err := m.client.PublishRetained(topic, payload); err != nil {
		if m.logger != nil {
			m.logger.Warn("publishing state failed",
				"topic", topic, "error", err)
		}
		return
	}
	m.published.Add(1)
}

// buildStatePayload maps an entity snapshot to its JSON form. Only the
// fields belonging to the entity's kind are emitted.
func buildStatePayload(e entity.Entity) statePayload {
	p := statePayload{
		Key:       uint32(e.Key),
		Name:      e.Name,
		Kind:      e.Kind.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	switch e.Kind {
	case entity.KindBinarySensor, entity.KindSwitch:
		p.On = &e.State.On
	case entity.KindSensor:
		if e.State.Missing {
			p.Missing = true
		} else {
			p.Value = &e.State.Value
		}
	case entity.KindLight:
		p.On = &e.State.On
		p.Brightness = &e.State.Brightness
		p.Red = &e.State.Red
		p.Green = &e.State.Green
		p.Blue = &e.State.Blue
	}
	return p
}

// Published returns how many state changes have been published.
func (m *Mirror) Published() uint64 {
	return m.published.Load()
}

// Dropped returns how many changes were lost to a full queue.
func (m *Mirror) Dropped() uint64 {
	return m.dropped.Load()
}

// Close flushes the queue, publishes the offline status and
// disconnects. Safe to call multiple times.
func (m *Mirror) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
	return m.client.Close()
}
