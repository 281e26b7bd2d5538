// Package ipc defines the message traffic crossing the render-process
// boundary: the wire format, the process transports, and the filter that
// routes messages arriving from a render process.
package ipc

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Message types carried across the render-process boundary.
const (
	// TypeRegisterExtension announces a registered extension (name and
	// JavaScript API source) to the render process.
	TypeRegisterExtension = "registerExtension"

	// TypePostMessage carries an extension message for a specific frame,
	// in either direction.
	TypePostMessage = "postMessage"

	// TypeOpenLinkExternal asks the browser process to open a URL outside
	// the runtime.
	TypeOpenLinkExternal = "openLinkExternal"
)

// Message is one unit of traffic across the render-process boundary.
// The payload is a single JSON object whose "type" field selects the
// handler on the receiving side.
type Message struct {
	raw []byte
}

// Decode parses a wire frame into a Message.
func Decode(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return Message{}, ErrMalformedMessage
	}
	if gjson.GetBytes(data, "type").Type != gjson.String {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return Message{raw: data}, nil
}

// Type returns the message type.
func (m Message) Type() string {
	return gjson.GetBytes(m.raw, "type").String()
}

// Get returns the value at the given JSON path within the message.
func (m Message) Get(path string) gjson.Result {
	return gjson.GetBytes(m.raw, path)
}

// Bytes returns the encoded wire frame.
func (m Message) Bytes() []byte {
	return m.raw
}

// String returns the wire frame as a string, for logging.
func (m Message) String() string {
	return string(m.raw)
}

// newMessage builds a message of the given type from field/value pairs.
// Construction failures indicate programmer error and panic.
func newMessage(msgType string, fields map[string]any) Message {
	raw, err := sjson.SetBytes(nil, "type", msgType)
	if err != nil {
		panic(fmt.Sprintf("ipc: building %s message: %v", msgType, err))
	}
	for k, v := range fields {
		raw, err = sjson.SetBytes(raw, k, v)
		if err != nil {
			panic(fmt.Sprintf("ipc: building %s message: %v", msgType, err))
		}
	}
	return Message{raw: raw}
}

// NewRegisterExtension builds the registration notification for one
// extension: its name and the JavaScript API source text to inject.
func NewRegisterExtension(name, api string) Message {
	return newMessage(TypeRegisterExtension, map[string]any{
		"name": name,
		"api":  api,
	})
}

// NewPostMessage builds an extension message bound to one frame.
func NewPostMessage(extension string, frameID int64, payload []byte) Message {
	return newMessage(TypePostMessage, map[string]any{
		"extension": extension,
		"frame":     frameID,
		"payload":   string(payload),
	})
}

// NewOpenLinkExternal builds a request to open url outside the runtime.
func NewOpenLinkExternal(url string) Message {
	return newMessage(TypeOpenLinkExternal, map[string]any{
		"url": url,
	})
}
