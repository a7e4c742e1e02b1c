// Package workers provides the fixed-size worker pool that drives a scan.
// A set of long-lived goroutines drains a channel of addresses, each worker
// handling one address end to end, and integrates with the structured logging
// and metrics systems.
package workers

import (
	"context"
	"fmt"
	"net/netip"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anstrom/kibanahunt/internal/errors"
	"github.com/anstrom/kibanahunt/internal/logging"
	"github.com/anstrom/kibanahunt/internal/metrics"
)

// DefaultSize is the number of workers used when none is configured.
const DefaultSize = 150

// Handler processes a single address. A returned error is isolated to that
// address and never stops the pool.
type Handler func(ctx context.Context, addr netip.Addr) error

// CompletionFunc is called exactly once for every address a worker takes,
// after the handler returns or panics.
type CompletionFunc func(addr netip.Addr, err error)

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
	// QueueSize is the capacity of the address channel feeding the workers.
	// Zero selects twice the pool size.
	QueueSize int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:      DefaultSize,
		QueueSize: 2 * DefaultSize,
	}
}

// Stats summarises one Run.
type Stats struct {
	Handled  uint64
	Failed   uint64
	Panics   uint64
	Duration time.Duration
}

// Option customises a Pool.
type Option func(*Pool)

// WithOnComplete registers a hook invoked once per handled address.
func WithOnComplete(fn CompletionFunc) Option {
	return func(p *Pool) {
		p.onComplete = fn
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// Pool runs a fixed number of workers over a stream of addresses.
type Pool struct {
	config     Config
	handler    Handler
	onComplete CompletionFunc
	metrics    metrics.Recorder
	logger     *logging.Logger

	handled atomic.Uint64
	failed  atomic.Uint64
	panics  atomic.Uint64
}

// worker represents a single worker goroutine.
type worker struct {
	id   int
	pool *Pool
}

// New creates a worker pool. A non-positive size selects DefaultSize.
func New(config Config, handler Handler, opts ...Option) *Pool {
	if config.Size <= 0 {
		config.Size = DefaultSize
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 2 * config.Size
	}

	p := &Pool{
		config:  config,
		handler: handler,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewDiscard()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.config.Size
}

// QueueSize returns the buffer size callers should give the address channel.
func (p *Pool) QueueSize() int {
	return p.config.QueueSize
}

// Run starts the workers, lets them drain addrs and returns once every
// worker has exited. Workers stop taking new addresses when ctx is done or
// addrs is closed; an address already taken is always completed.
func (p *Pool) Run(ctx context.Context, addrs <-chan netip.Addr) Stats {
	start := time.Now()
	p.handled.Store(0)
	p.failed.Store(0)
	p.panics.Store(0)

	p.logger.Info("Starting worker pool",
		"worker_count", p.config.Size,
		"queue_size", p.config.QueueSize)

	var wg sync.WaitGroup
	for i := 0; i < p.config.Size; i++ {
		w := &worker{id: i, pool: p}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx, addrs)
		}()
	}
	wg.Wait()

	stats := Stats{
		Handled:  p.handled.Load(),
		Failed:   p.failed.Load(),
		Panics:   p.panics.Load(),
		Duration: time.Since(start),
	}
	p.logger.Info("Worker pool finished",
		"handled", stats.Handled,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats
}

// worker.run executes the worker loop.
func (w *worker) run(ctx context.Context, addrs <-chan netip.Addr) {
	if w.pool.metrics != nil {
		w.pool.metrics.AddActiveWorkers(1)
		defer w.pool.metrics.AddActiveWorkers(-1)
	}

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case addr, ok := <-addrs:
			if !ok {
				return
			}
			w.handle(ctx, addr)
		case <-ctx.Done():
			return
		}
	}
}

// handle runs the handler for one address, converting a panic into an
// INTERNAL error so the rest of the scan continues.
func (w *worker) handle(ctx context.Context, addr netip.Addr) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.pool.panics.Add(1)
				if w.pool.metrics != nil {
					w.pool.metrics.IncrementWorkerFaults()
				}
				err = errors.NewProbeError(errors.CodeInternal, "worker",
					fmt.Sprintf("panic: %v", r), addr.String(), 0)
				w.pool.logger.ErrorScan("Recovered panic while handling address", addr.String(), err,
					"worker_id", w.id,
					"stack", string(debug.Stack()))
			}
		}()
		err = w.pool.handler(ctx, addr)
	}()

	w.pool.handled.Add(1)
	if err != nil {
		w.pool.failed.Add(1)
		w.pool.logger.Debug("Address handler failed",
			"target", addr.String(),
			"worker_id", w.id,
			"error", err)
	}
	if w.pool.onComplete != nil {
		w.pool.onComplete(addr, err)
	}
}
