package lua

import "errors"

// Lua extension errors.
var (
	// ErrExecutorClosed is returned when attempting to use a closed executor.
	ErrExecutorClosed = errors.New("lua executor is closed")

	// ErrNoHandlerFunction is returned when the extension script does not
	// define a handle_message function.
	ErrNoHandlerFunction = errors.New("script does not define handle_message")

	// ErrExtensionClosed is returned when dispatching to a closed extension.
	ErrExtensionClosed = errors.New("lua extension is closed")
)
