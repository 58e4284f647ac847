package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/nodelink/internal/entity"
)

const (
	// recordQueueSize buffers state changes awaiting insertion.
	recordQueueSize = 256

	// recordTimeout bounds each insert.
	recordTimeout = 5 * time.Second
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder feeds registry state changes into the repository without
// blocking the caller. Changes are queued and written by a single
// worker goroutine; when the queue is full the change is dropped and
// counted, never waited on.
type Recorder struct {
	repo  *Repository
	queue chan entity.Entity

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger Logger

	recorded atomic.Uint64
	dropped  atomic.Uint64
}

// NewRecorder starts a recorder over repo. logger may be nil.
func NewRecorder(repo *Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	r := &Recorder{
		repo:   repo,
		queue:  make(chan entity.Entity, recordQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Observe is the registry observer hook. Non-blocking.
func (r *Recorder) Observe(e entity.Entity) {
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
		r.logger.Warn("history queue full, dropping state change",
			"key", uint32(e.Key), "name", e.Name)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.done:
			r.drainQueue()
			return
		case e := <-r.queue:
			r.record(e)
		}
	}
}

// drainQueue writes whatever is still buffered at shutdown.
func (r *Recorder) drainQueue() {
	for {
		select {
		case e := <-r.queue:
			r.record(e)
		default:
			return
		}
	}
}

func (r *Recorder) record(e entity.Entity) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.repo.Record(ctx, e); err != nil {
		r.logger.Error("recording state change failed",
			"key", uint32(e.Key), "name", e.Name, "error", err)
		return
	}
	r.recorded.Add(1)
}

// Recorded returns how many changes have been written.
func (r *Recorder) Recorded() uint64 {
	return r.recorded.Load()
}

// Dropped returns how many changes were lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close flushes the queue and stops the worker.
// Safe to call multiple times.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}
