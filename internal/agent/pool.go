package agent

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolSaturated is returned by TrySubmit when every worker is busy and
// the queue is full.
var ErrPoolSaturated = errors.New("worker pool saturated")

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of work run by the pool.
type Job func(ctx context.Context)

// WorkerPool runs hunts on a fixed number of workers fed by a bounded queue.
type WorkerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan Job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool with the given concurrency and queue size.
func NewWorkerPool(parent context.Context, concurrency, queueSize int) (*WorkerPool, error) {
	if concurrency <= 0 || queueSize < 0 {
		return nil, errors.New("worker pool requires positive concurrency and a non-negative queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &WorkerPool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan Job, queueSize),
	}
	pool.start(concurrency)
	return pool, nil
}

func (p *WorkerPool) start(concurrency int) {
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			// queued jobs always run; after cancellation they see a done
			// context and return early
			for job := range p.jobs {
				job(p.ctx)
			}
		}()
	}
}

// Submit schedules a job, blocking until a slot frees up or ctx ends.
func (p *WorkerPool) Submit(ctx context.Context, fn Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- fn:
		return nil
	}
}

// TrySubmit schedules a job without blocking.
func (p *WorkerPool) TrySubmit(fn Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobs <- fn:
		return nil
	default:
		return ErrPoolSaturated
	}
}

// Close stops accepting work, cancels the pool context, runs whatever is
// still queued against it and waits for workers.
func (p *WorkerPool) Close() {
	p.cancel()
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
