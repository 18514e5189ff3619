package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/pkg/logger"
	"github.com/okian/attendance/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultPublishTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.AttendanceEvent

// Publisher delivers a notification to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
	Len(ctx context.Context) int
}

// Worker publishes events until the queue is closed or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue          Queue
	publishers     []Publisher
	name           string
	publishTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, publishers []Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          queue,
		publishers:     publishers,
		name:           "worker",
		publishTimeout: defaultPublishTimeout,
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			metrics.UpdateQueueSize(w.queue.Len(ctx))
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error publishing event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent hands the event to every publisher. One failing sink does
// not stop the others.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	var errs []error
	for _, p := range w.publishers {
		pctx, cancel := context.WithTimeout(ctx, w.publishTimeout)
		err := p.Publish(pctx, event)
		cancel()

		if err != nil {
			metrics.RecordNotification(p.Name(), metrics.ResultError)
			w.logger.Warn(ctx, "publish failed",
				logger.String("sink", p.Name()),
				logger.Uint64("sequence_id", event.SequenceID),
				logger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		metrics.RecordNotification(p.Name(), metrics.ResultOK)
	}
	return errors.Join(errs...)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, queue Queue, publishers []Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	base := probe.logger
	if base == nil {
		base = logger.Get().Named("worker")
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  base.Named("pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithLogger(base)}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(queue, publishers, workerOpts...)
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx or the pool timeout expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			close(worker.shutdown)
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
