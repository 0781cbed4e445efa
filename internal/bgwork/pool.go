// Package bgwork is the bounded background worker pool spec.md §9 calls
// for: "fire-and-forget async becomes explicit tasks submitted to a
// background worker pool with bounded queue." DeathPipeline's XP/loot
// grants are submitted here rather than awaited inline on the tick.
package bgwork

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pool drains a bounded channel of closures with a fixed worker count. A
// panic inside one task is logged and does not take down the worker.
type Pool struct {
	tasks  chan func()
	log    *zap.Logger
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New starts a pool with the given worker count and queue capacity.
func New(workers, queueSize int, log *zap.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(ctx)

	p := &Pool{
		tasks:  make(chan func(), queueSize),
		log:    log,
		cancel: cancel,
		group:  g,
	}

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p.run(gCtx)
			return nil
		})
	}
	return p
}

func (p *Pool) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(task)
		}
	}
}

func (p *Pool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Error("bgwork task panicked", zap.Any("panic", r))
			}
		}
	}()
	task()
}

// Submit enqueues a task, dropping it (with a warning log) if the queue is
// full rather than blocking the tick. Submit after Shutdown is a no-op.
func (p *Pool) Submit(task func()) {
	defer func() {
		// Submit racing a closed channel from a concurrent Shutdown is
		// swallowed rather than propagated as a panic.
		_ = recover()
	}()
	select {
	case p.tasks <- task:
	default:
		if p.log != nil {
			p.log.Warn("bgwork queue full, dropping task")
		}
	}
}

// Shutdown stops accepting new work, waits for in-flight tasks to finish,
// and drains nothing left in the queue (callers should have stopped
// submitting before calling this).
func (p *Pool) Shutdown() {
	p.cancel()
	close(p.tasks)
	_ = p.group.Wait()
}
