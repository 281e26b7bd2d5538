// Package lua implements extensions whose native message handler is a Lua
// script, executed in a sandboxed interpreter owned by the extension.
package lua

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	glua "github.com/yuin/gopher-lua"
)

// call represents a Lua operation to be executed.
type call struct {
	// fn performs all Lua operations against the state.
	fn func(L *glua.LState) error

	// result receives the outcome; closed after the result is sent.
	result chan error
}

// executor serializes all Lua operations through a single goroutine.
//
// gopher-lua's LState is not goroutine-safe: every operation must happen
// on the goroutine that owns it. The executor marshals operations from
// arbitrary goroutines onto that single worker.
type executor struct {
	L     *glua.LState
	queue chan *call

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	// stopped is closed when Run returns, so Close can wait before the
	// LState is released.
	stopped chan struct{}
}

// newExecutor creates an executor for the given Lua state.
func newExecutor(L *glua.LState, queueSize int) *executor {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &executor{
		L:       L,
		queue:   make(chan *call, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run processes Lua operations from the queue until the context is
// cancelled or Close is called. It owns the Lua state for its duration.
func (e *executor) Run(ctx context.Context) {
	defer close(e.stopped)
	for {
		select {
		case <-ctx.Done():
			e.drainQueue(ctx.Err())
			return
		case <-e.done:
			e.drainQueue(ErrExecutorClosed)
			return
		case c := <-e.queue:
			err := e.executeCall(c)
			select {
			case c.result <- err:
			default:
			}
			close(c.result)
		}
	}
}

// executeCall runs a single Lua operation with panic recovery.
func (e *executor) executeCall(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("lua panic")
			}
		}
	}()
	return c.fn(e.L)
}

// drainQueue fails remaining queued calls with the given error.
func (e *executor) drainQueue(err error) {
	for {
		select {
		case c := <-e.queue:
			select {
			case c.result <- err:
			default:
			}
			close(c.result)
		default:
			return
		}
	}
}

// Execute runs fn on the executor's goroutine and blocks until it
// completes or the context is cancelled.
func (e *executor) Execute(ctx context.Context, fn func(L *glua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	c := &call{
		fn:     fn,
		result: make(chan error, 1),
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		// The call stays queued and will still be processed; we just stop
		// waiting for it.
		return ctx.Err()
	case err, ok := <-c.result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	}
}

// Close stops the executor and waits for the worker to exit, so the
// caller can safely release the Lua state afterwards.
func (e *executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
	<-e.stopped
}
