package ipc

import "sync"

// HandlerFunc handles one message arriving from a render process.
type HandlerFunc func(msg Message) error

// MessageFilter routes messages arriving from a render process to the
// handler registered for their type. Unrecognized types are reported as
// unhandled rather than treated as errors, so several filters can be
// chained by the embedder.
type MessageFilter struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewMessageFilter creates an empty filter.
func NewMessageFilter() *MessageFilter {
	return &MessageFilter{
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for messages of the given type, replacing any
// previous handler for that type.
func (f *MessageFilter) Handle(msgType string, fn HandlerFunc) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[msgType] = fn
}

// OnMessageReceived dispatches msg to its handler. It reports whether a
// handler was registered for the message type, and any error the handler
// returned.
func (f *MessageFilter) OnMessageReceived(msg Message) (bool, error) {
	f.mu.RLock()
	fn, ok := f.handlers[msg.Type()]
	f.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, fn(msg)
}
