package extension

import (
	"sync"
	"sync/atomic"
)

// defaultRunnerQueueSize bounds how many undelivered messages a threaded
// runner buffers before reporting ErrRunnerQueueFull.
const defaultRunnerQueueSize = 64

// ThreadedRunner dispatches extension logic on a dedicated worker
// goroutine, decoupling extension execution latency from the goroutine
// driving document lifecycle events. This is the variant the Service
// attaches by default.
type ThreadedRunner struct {
	ext    Extension
	client RunnerClient

	queue chan []byte
	done  chan struct{}

	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewThreadedRunner creates a runner with its own worker. The worker does
// not start until Attach is called.
func NewThreadedRunner(ext Extension, client RunnerClient) *ThreadedRunner {
	return &ThreadedRunner{
		ext:    ext,
		client: client,
		queue:  make(chan []byte, defaultRunnerQueueSize),
		done:   make(chan struct{}),
	}
}

// Extension returns the extension this runner executes.
func (r *ThreadedRunner) Extension() Extension {
	return r.ext
}

// Attach starts the worker goroutine.
func (r *ThreadedRunner) Attach() {
	r.wg.Add(1)
	go r.run()
}

// PostMessage enqueues msg for the worker. Posting never blocks: a full
// queue or a detached runner is reported through the client callback.
func (r *ThreadedRunner) PostMessage(msg []byte) {
	if r.closed.Load() {
		r.client.HandleRunnerError(r, ErrRunnerDetached)
		return
	}

	select {
	case r.queue <- msg:
	case <-r.done:
		r.client.HandleRunnerError(r, ErrRunnerDetached)
	default:
		r.client.HandleRunnerError(r, ErrRunnerQueueFull)
	}
}

// Detach stops the worker and waits for it to finish the dispatch it is
// executing, if any. Messages still queued are dropped. Safe to call more
// than once.
func (r *ThreadedRunner) Detach() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
	})
	r.wg.Wait()
}

// run is the worker loop. It processes queued messages until Detach.
func (r *ThreadedRunner) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.queue:
			dispatchToExtension(r, r.ext, r.client, msg)
		}
	}
}
