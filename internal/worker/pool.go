// Package worker runs fire-and-forget background tasks on a bounded pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pageza/mealplanner/backend/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("worker queue is full")
	ErrClosed    = errors.New("worker pool is shut down")
)

// TaskFunc is the body of a background task.
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	fn   TaskFunc
}

// Config sizes the pool.
type Config struct {
	Concurrency int
	QueueSize   int
	TaskTimeout time.Duration
}

// Pool executes submitted tasks on a fixed set of goroutines. Task
// contexts are detached from the submitting request and cancelled only by
// the task timeout or a forced shutdown.
type Pool struct {
	cfg    Config
	logger *zap.Logger
	queue  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool(cfg Config, logger *zap.Logger) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "worker")),
		queue:  make(chan task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Submit enqueues fn without blocking.
func (p *Pool) Submit(name string, fn TaskFunc) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- task{name: name, fn: fn}:
		return nil
	default:
		metrics.ObserveBackgroundTask(name, "rejected")
		return ErrQueueFull
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for t := range p.queue {
		p.execute(t)
	}
}

func (p *Pool) execute(t task) {
	ctx := p.ctx
	if p.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TaskTimeout)
		defer cancel()
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.fn(ctx)
	}()

	if err != nil {
		metrics.ObserveBackgroundTask(t.name, "failed")
		p.logger.Error("Background task failed",
			zap.String("task", t.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	metrics.ObserveBackgroundTask(t.name, "succeeded")
	p.logger.Debug("Background task finished",
		zap.String("task", t.name),
		zap.Duration("elapsed", time.Since(start)))
}

// Shutdown stops accepting tasks and waits for queued ones to drain. If ctx
// ends first, running tasks are cancelled and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
