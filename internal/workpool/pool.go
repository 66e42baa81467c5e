// Package workpool provides the task-submission abstraction the HTTP
// facade runs request handlers on.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("pool closed")

// Executor runs units of work.
type Executor interface {
	// Submit schedules task. It blocks until the task has been accepted
	// or ctx is done, and returns an error when the task will not run.
	Submit(ctx context.Context, task func()) error
}

// Pool is an Executor that runs each task on its own goroutine while
// bounding how many run at once.
type Pool struct {
	sem    *semaphore.Weighted
	size   int64
	wg     sync.WaitGroup
	active atomic.Int64
	closed atomic.Bool
}

// New creates a pool running at most size tasks concurrently.
func New(size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}, nil
}

// Submit waits for a free slot and starts task on it.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker: %w", err)
	}

	p.wg.Add(1)
	p.active.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.active.Add(-1)
		task()
	}()
	return nil
}

// Active reports the number of running tasks.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Size reports the concurrency bound.
func (p *Pool) Size() int {
	return int(p.size)
}

// Close stops accepting tasks and waits for running ones to finish, or for
// ctx to be done.
func (p *Pool) Close(ctx context.Context) error {
	p.closed.Store(true)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
