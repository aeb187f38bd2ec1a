package daemon

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrDispatcherClosed is returned by Do after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

type dispatchJob struct {
	fn   func()
	done chan error
}

// Dispatcher runs every submitted function on a single locked OS thread.
// Native window calls are not safe to issue concurrently, so the daemon
// funnels all of them through one Dispatcher.
type Dispatcher struct {
	jobs      chan dispatchJob
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewDispatcher starts the dispatch goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		jobs:    make(chan dispatchJob),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.stopped)

	for {
		select {
		case <-d.quit:
			return
		case job := <-d.jobs:
			job.done <- runJob(job.fn)
		}
	}
}

func runJob(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatched call panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Do runs fn on the dispatcher thread and waits for it to return. While fn
// is still queued, cancelling ctx abandons it and returns ctx.Err().
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	if fn == nil {
		return nil
	}
	job := dispatchJob{fn: fn, done: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrDispatcherClosed
	case d.jobs <- job:
	}
	return <-job.done
}

// Close stops the dispatcher after the running job, if any, finishes.
// Queued callers receive ErrDispatcherClosed.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
	})
	<-d.stopped
}
