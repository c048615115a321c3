package systemlog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/config"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Recorder accepts system log events without blocking the caller.
type Recorder interface {
	Record(e Event)
}

// Writer persists events on a background goroutine. When the buffer is full
// events are dropped so request paths never wait on the log store.
type Writer struct {
	repo   SystemLogRepository
	hub    *Hub
	clock  clock.Clock
	logger *zap.Logger

	mu      sync.RWMutex
	closed  bool
	logChan chan Event
	done    chan struct{}
	dropped atomic.Int64
}

func NewWriter(repo SystemLogRepository, hub *Hub, clk clock.Clock, logger *zap.Logger, buffer int) *Writer {
	w := &Writer{
		repo:    repo,
		hub:     hub,
		clock:   clk,
		logger:  logger,
		logChan: make(chan Event, buffer),
		done:    make(chan struct{}),
	}

	// Start the background worker immediately
	go w.processLogs()

	return w
}

// ProvideWriter builds the writer and drains it when the application stops.
func ProvideWriter(lc fx.Lifecycle, repo SystemLogRepository, hub *Hub, clk clock.Clock, cfg *config.Config, logger *zap.Logger) *Writer {
	w := NewWriter(repo, hub, clk, logger, cfg.SystemLogBuffer)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return w.Close(ctx)
		},
	})
	return w
}

func (w *Writer) Record(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = w.clock.Now()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return
	}

	select {
	case w.logChan <- e:
	default:
		w.dropped.Add(1)
		w.logger.Warn("System log buffer full, dropping event", zap.String("eventType", e.EventType))
	}
}

// Dropped reports how many events were discarded.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be written.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.logChan)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) processLogs() {
	defer close(w.done)
	for e := range w.logChan {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.repo.Insert(ctx, e); err != nil {
			w.logger.Warn("Failed to write system log", zap.String("eventType", e.EventType), zap.Error(err))
		}
		cancel()
		if w.hub != nil {
			w.hub.Publish(e)
		}
	}
}
