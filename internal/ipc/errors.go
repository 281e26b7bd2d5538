package ipc

import "errors"

// IPC errors.
var (
	// ErrMalformedMessage is returned when a wire frame cannot be decoded.
	ErrMalformedMessage = errors.New("malformed ipc message")

	// ErrProcessClosed is returned when sending to a closed process.
	ErrProcessClosed = errors.New("render process is closed")

	// ErrSendQueueFull is returned when a process cannot accept more
	// outbound messages without blocking.
	ErrSendQueueFull = errors.New("render process send queue full")
)
