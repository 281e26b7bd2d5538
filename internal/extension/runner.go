package extension

import (
	"errors"
	"fmt"
)

// Runner is the execution channel binding one extension to one document
// frame. Messages flow one way into the runner; replies and errors come
// back asynchronously through the RunnerClient.
type Runner interface {
	// Extension returns the extension this runner executes.
	Extension() Extension

	// PostMessage dispatches a message toward the extension. Dispatch is
	// fire-and-forget; failures surface through the client callback.
	PostMessage(msg []byte)

	// Attach starts the runner. Called once, when the runner is attached
	// to a document handler.
	Attach()

	// Detach tears the runner down. It returns only after in-flight
	// dispatches have drained, so a destroyed document never has work
	// still running against it.
	Detach()
}

// RunnerClient receives the results of extension dispatches. Document
// handlers implement it to forward replies to the bound render process.
type RunnerClient interface {
	// HandleMessageFromExtension delivers a reply produced by the
	// extension behind r.
	HandleMessageFromExtension(r Runner, reply []byte)

	// HandleRunnerError reports a dispatch failure. Errors never
	// propagate out of a runner any other way.
	HandleRunnerError(r Runner, err error)
}

// RunnerFactory constructs a runner for one (extension, client) pair.
type RunnerFactory func(ext Extension, client RunnerClient) Runner

// DirectRunner executes extension logic synchronously on the calling
// goroutine. It is useful for tests and for extensions whose handlers are
// known to be fast and non-blocking.
type DirectRunner struct {
	ext    Extension
	client RunnerClient
}

// NewDirectRunner creates a synchronous runner.
func NewDirectRunner(ext Extension, client RunnerClient) *DirectRunner {
	return &DirectRunner{
		ext:    ext,
		client: client,
	}
}

// Extension returns the extension this runner executes.
func (r *DirectRunner) Extension() Extension {
	return r.ext
}

// PostMessage dispatches msg to the extension handler on the caller's
// goroutine and delivers the result to the client before returning.
func (r *DirectRunner) PostMessage(msg []byte) {
	dispatchToExtension(r, r.ext, r.client, msg)
}

// Attach implements Runner. Direct runners have nothing to start.
func (r *DirectRunner) Attach() {}

// Detach implements Runner. Dispatch is synchronous, so there is never
// in-flight work to drain.
func (r *DirectRunner) Detach() {}

// dispatchToExtension runs one message through an extension's native
// handler and reports the outcome to the client. Panics in handlers are
// converted to errors so they never cross the runner boundary.
func dispatchToExtension(r Runner, ext Extension, client RunnerClient, msg []byte) {
	handler, ok := ext.(MessageHandler)
	if !ok {
		client.HandleRunnerError(r, ErrNoHandler)
		return
	}

	reply, err := func() (reply []byte, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				switch v := rec.(type) {
				case error:
					err = fmt.Errorf("extension panic: %w", v)
				case string:
					err = errors.New("extension panic: " + v)
				default:
					err = errors.New("extension panic")
				}
			}
		}()
		return handler.HandleMessage(msg)
	}()

	if err != nil {
		client.HandleRunnerError(r, err)
		return
	}
	if reply != nil {
		client.HandleMessageFromExtension(r, reply)
	}
}
