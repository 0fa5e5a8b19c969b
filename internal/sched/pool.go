// Package sched runs CPU-heavy bridge calls on a fixed pool of workers, each
// pinned to its own OS thread, so long parses and queries never occupy the
// caller's goroutine.
package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("treebridge.sched")

var (
	// ErrPanic wraps a panic recovered from a job.
	ErrPanic = errors.New("panic in heavy job")
	// ErrClosed is returned for jobs submitted after Close.
	ErrClosed = errors.New("pool closed")
)

type job struct {
	name string
	fn   func() error
	done chan error
}

// Pool is a fixed set of thread-locked workers. Jobs are handed over on an
// unbuffered channel, so a job is admitted only at the moment a worker takes
// it.
type Pool struct {
	workers   int
	jobs      chan job
	closed    chan struct{}
	closeOnce sync.Once
	g         errgroup.Group
}

// New starts a pool of n workers. n <= 0 means GOMAXPROCS.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: n,
		jobs:    make(chan job),
		closed:  make(chan struct{}),
	}
	for id := range n {
		p.g.Go(func() error { return p.work(id) })
	}
	log.Debugf("started %d heavy workers", n)
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) work(id int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for {
		select {
		case <-p.closed:
			log.Debugf("worker %d stopped", id)
			return nil
		case j := <-p.jobs:
			j.done <- run(j)
		}
	}
}

func run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warningf("%s: recovered panic: %v", j.name, r)
			err = fmt.Errorf("%s: %w: %v", j.name, ErrPanic, r)
		}
	}()
	return j.fn()
}

// Heavy runs fn on a worker and waits for it. If ctx ends before a worker
// takes the job, Heavy returns ctx.Err() and fn never runs. Once taken, fn
// runs to completion whatever happens to ctx.
func (p *Pool) Heavy(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := job{name: name, fn: fn, done: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return fmt.Errorf("sched: %s: %w", name, ErrClosed)
	case p.jobs <- j:
	}
	return <-j.done
}

// Run is Heavy for functions that produce a value.
func Run[T any](ctx context.Context, p *Pool, name string, fn func() (T, error)) (T, error) {
	var out T
	err := p.Heavy(ctx, name, func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Close stops the workers once they finish their current jobs and waits for
// them. It is safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return p.g.Wait()
}
