package extension

import "errors"

// Extension system errors.
var (
	// ErrNoHandler is reported when a message is dispatched to an
	// extension that exposes no native message handler.
	ErrNoHandler = errors.New("extension does not handle native messages")

	// ErrRunnerDetached is reported when a message is posted to a runner
	// that has already been detached.
	ErrRunnerDetached = errors.New("runner is detached")

	// ErrRunnerQueueFull is reported when a threaded runner's dispatch
	// queue cannot accept another message.
	ErrRunnerQueueFull = errors.New("runner queue full")

	// ErrHandlerClosed is returned when attaching to a closed document
	// handler.
	ErrHandlerClosed = errors.New("document handler is closed")

	// ErrExtensionNotFound is returned when a named extension cannot be
	// located on disk.
	ErrExtensionNotFound = errors.New("extension not found")

	// ErrNoAPIFile is returned when an extension directory has no
	// JavaScript API entry point.
	ErrNoAPIFile = errors.New("extension has no api entry point (api.js)")
)
