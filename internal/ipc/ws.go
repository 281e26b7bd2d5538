package ipc

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketProcess is a Process whose render process lives on the far end
// of a WebSocket connection. Writes are serialized so Send keeps the
// ordered-delivery contract; reads run on a single loop that feeds the
// embedder's message filter.
type WebSocketProcess struct {
	id     int
	conn   *websocket.Conn
	filter *MessageFilter

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocketProcess wraps an established connection. The filter receives
// every decoded message read from the connection; it may be nil if the
// embedder never calls ReadLoop.
func NewWebSocketProcess(id int, conn *websocket.Conn, filter *MessageFilter) *WebSocketProcess {
	return &WebSocketProcess{
		id:     id,
		conn:   conn,
		filter: filter,
		done:   make(chan struct{}),
	}
}

// ID returns the process identifier.
func (p *WebSocketProcess) ID() int {
	return p.id
}

// Send writes a message frame to the connection.
func (p *WebSocketProcess) Send(msg Message) error {
	select {
	case <-p.done:
		return ErrProcessClosed
	default:
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.WriteMessage(websocket.TextMessage, msg.Bytes()); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

// ReadLoop reads frames from the connection and routes them through the
// filter until the connection fails or the process is closed. It must be
// called from a single goroutine.
func (p *WebSocketProcess) ReadLoop() error {
	if p.filter == nil {
		return fmt.Errorf("websocket read: no message filter")
	}

	for {
		select {
		case <-p.done:
			return ErrProcessClosed
		default:
		}

		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}

		msg, err := Decode(data)
		if err != nil {
			// Malformed traffic from a renderer is dropped, not fatal.
			continue
		}

		// Handler errors are the handler's concern; the loop keeps reading.
		_, _ = p.filter.OnMessageReceived(msg)
	}
}

// Close terminates the connection. Safe to call more than once.
func (p *WebSocketProcess) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}
