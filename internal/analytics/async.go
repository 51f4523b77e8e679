package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/patrickwarner/adunits/internal/observability"
	"go.uber.org/zap"
)

var _ EventSink = (*Async)(nil)

// Async forwards events to another sink from a background goroutine so
// callers never wait on I/O. When the queue is full the event is dropped and
// counted.
type Async struct {
	next    EventSink
	queue   chan Event
	logger  *zap.Logger
	metrics observability.MetricsRegistry
	timeout time.Duration

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// NewAsync starts the forwarding goroutine. Close must be called to stop it.
func NewAsync(next EventSink, size int, logger *zap.Logger, metrics observability.MetricsRegistry) *Async {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	a := &Async{
		next:    next,
		queue:   make(chan Event, size),
		logger:  logger,
		metrics: metrics,
		timeout: 2 * time.Second,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Record(ctx, ev); err != nil {
			a.logger.Warn("analytics record failed",
				zap.String("event_type", string(ev.Type)),
				zap.Error(err))
		}
		cancel()
	}
}

// Record enqueues ev. It never blocks.
func (a *Async) Record(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrUnavailable
	}
	select {
	case a.queue <- ev:
	default:
		a.metrics.IncrementSinkDrops()
		if observability.ShouldSample(observability.GetSamplingRate()) {
			a.logger.Warn("analytics queue full, dropping event",
				zap.String("event_type", string(ev.Type)))
		}
	}
	return nil
}

// Close drains the queue and closes the wrapped sink.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
		<-a.done
		err = a.next.Close()
	})
	return err
}
