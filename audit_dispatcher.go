package tokenpair

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves sink latency off the request path. The engine
// enqueues on a bounded channel and one goroutine drains it, so a sink
// sees Emit calls strictly one after another.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	// mu guards queue against a send racing close. Emit holds the read
	// side for the duration of its send; Close takes the write side.
	mu     sync.RWMutex
	queue  chan AuditEvent
	closed bool
	idle   chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// newAuditDispatcher returns nil when auditing is off; every method
// accepts a nil receiver.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		idle:       make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer close(d.idle)
	// The range ends only after Close closes the queue and everything
	// already buffered has been handed to the sink.
	for ev := range d.queue {
		d.sink.Emit(context.Background(), ev)
		d.delivered.Add(1)
	}
}

// Emit enqueues ev. A full queue drops ev when dropIfFull is set and
// otherwise waits for room or for ctx to end. Events after Close are
// discarded silently.
func (d *auditDispatcher) Emit(ctx context.Context, ev AuditEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- ev:
		default:
			d.dropped.Add(1)
		}
		return
	}

	var cancelled <-chan struct{}
	if ctx != nil {
		cancelled = ctx.Done()
	}
	select {
	case d.queue <- ev:
	case <-cancelled:
		d.dropped.Add(1)
	}
}

// Close stops intake and blocks until the queue is flushed to the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *auditDispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
