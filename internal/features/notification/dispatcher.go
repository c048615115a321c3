package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-regula/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TaskTimeout bounds a single task. Tasks never inherit the caller's context.
const TaskTimeout = 30 * time.Second

// Dispatcher runs tasks on a fixed worker pool fed by a bounded queue.
// Dispatch never blocks; a full queue drops the task.
type Dispatcher struct {
	logger  *zap.Logger
	queue   chan Task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewDispatcher(workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		logger: logger,
		queue:  make(chan Task, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// ProvideDispatcher builds the dispatcher and drains it on shutdown.
func ProvideDispatcher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *Dispatcher {
	d := NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Close(ctx)
		},
	})
	return d
}

// Dispatch enqueues t and reports whether it was accepted.
func (d *Dispatcher) Dispatch(t Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}

	select {
	case d.queue <- t:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("Notification queue full, dropping task", zap.String("task", t.Name))
		return false
	}
}

func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

func (d *Dispatcher) Failed() int64 { return d.failed.Load() }

// Close stops intake and waits for queued tasks, bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("Notification task panicked", zap.String("task", t.Name), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), TaskTimeout)
	defer cancel()
	if err := t.Run(ctx); err != nil {
		d.failed.Add(1)
		d.logger.Warn("Notification task failed", zap.String("task", t.Name), zap.Error(err))
	}
}
