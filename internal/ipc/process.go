package ipc

import "sync"

// Process is the browser-side handle to a render process. The extension
// layer only needs ordered delivery of messages to the process; any
// transport satisfying that contract can stand behind this interface.
type Process interface {
	// ID identifies the process.
	ID() int

	// Send delivers a message to the process. Delivery is ordered with
	// respect to other Send calls on the same process.
	Send(msg Message) error
}

// ChannelProcess is an in-memory Process backed by a buffered channel.
// It is used by the demo host and by tests standing in for a real
// out-of-process renderer.
type ChannelProcess struct {
	id int

	mu     sync.Mutex
	closed bool
	out    chan Message
}

// NewChannelProcess creates an in-memory process with the given id and
// send-queue capacity.
func NewChannelProcess(id, buffer int) *ChannelProcess {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelProcess{
		id:  id,
		out: make(chan Message, buffer),
	}
}

// ID returns the process identifier.
func (p *ChannelProcess) ID() int {
	return p.id
}

// Send queues a message for the process. Returns ErrSendQueueFull rather
// than blocking when the queue is full.
func (p *ChannelProcess) Send(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProcessClosed
	}

	select {
	case p.out <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Messages returns the channel the process receives on.
func (p *ChannelProcess) Messages() <-chan Message {
	return p.out
}

// Close marks the process dead. Queued messages remain readable.
func (p *ChannelProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.out)
	return nil
}
