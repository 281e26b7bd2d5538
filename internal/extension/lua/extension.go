package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	glua "github.com/yuin/gopher-lua"
)

// handlerFunction is the global the extension script must define to handle
// native messages. It receives the message as a string and may return a
// string reply.
const handlerFunction = "handle_message"

// DefaultDispatchTimeout bounds how long a single message dispatch may
// hold the interpreter.
const DefaultDispatchTimeout = 5 * time.Second

// Extension is an extension whose native handler is implemented by a Lua
// script. All interpreter access is serialized through a dedicated
// executor goroutine, so the extension can be dispatched to from any
// runner. It holds a live interpreter and must be closed when released.
type Extension struct {
	name string
	api  string

	L    *glua.LState
	exec *executor

	dispatchTimeout time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Lua extension.
type Option func(*Extension)

// WithDispatchTimeout overrides the per-message dispatch timeout.
func WithDispatchTimeout(d time.Duration) Option {
	return func(e *Extension) {
		e.dispatchTimeout = d
	}
}

// New creates a Lua-backed extension. The script is executed once, at
// construction, and must define a handle_message(msg) function.
func New(name, api, script string, opts ...Option) (*Extension, error) {
	e := &Extension{
		name:            name,
		api:             api,
		dispatchTimeout: DefaultDispatchTimeout,
		closed:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	L := glua.NewState(glua.Options{
		SkipOpenLibs: true, // Opened selectively below
	})
	openSafeLibraries(L)

	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load extension script: %w", err)
	}

	fn := L.GetGlobal(handlerFunction)
	if fn == glua.LNil || fn.Type() != glua.LTFunction {
		L.Close()
		return nil, ErrNoHandlerFunction
	}

	e.L = L
	e.exec = newExecutor(L, 0)
	go e.exec.Run(context.Background())

	return e, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *glua.LState) {
	glua.OpenBase(L)
	glua.OpenTable(L)
	glua.OpenString(L)
	glua.OpenMath(L)

	// Intentionally not opened: io, os, debug, package. Extension scripts
	// get no filesystem, process, or module-loading access.
}

// Name returns the extension name.
func (e *Extension) Name() string {
	return e.name
}

// JavaScriptAPI returns the API source text injected into documents.
func (e *Extension) JavaScriptAPI() string {
	return e.api
}

// HandleMessage dispatches msg to the script's handle_message function on
// the interpreter goroutine and returns its reply, if any.
func (e *Extension) HandleMessage(msg []byte) ([]byte, error) {
	select {
	case <-e.closed:
		return nil, ErrExtensionClosed
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.dispatchTimeout)
	defer cancel()

	var reply []byte
	err := e.exec.Execute(ctx, func(L *glua.LState) error {
		fn := L.GetGlobal(handlerFunction)
		L.Push(fn)
		L.Push(glua.LString(msg))
		if err := L.PCall(1, 1, nil); err != nil {
			return fmt.Errorf("handle_message failed: %w", err)
		}

		ret := L.Get(-1)
		L.Pop(1)
		if s, ok := ret.(glua.LString); ok {
			reply = []byte(s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// Close stops the interpreter goroutine and releases the Lua state.
// Safe to call more than once.
func (e *Extension) Close() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.exec.Close() // waits for the worker to exit
		e.L.Close()
	})
	return nil
}
