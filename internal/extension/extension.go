package extension

// Extension is a named native capability module exposing a JavaScript API
// to documents. Once registered with a Service the extension is owned by
// it and must not change identity.
type Extension interface {
	// Name returns the extension's unique dotted identifier.
	Name() string

	// JavaScriptAPI returns the API source text injected into the
	// scripting environment of every document.
	JavaScriptAPI() string
}

// MessageHandler is implemented by extensions whose native side handles
// messages dispatched from documents. Failures are reported through the
// returned error, never by panicking across the runner boundary.
type MessageHandler interface {
	HandleMessage(msg []byte) ([]byte, error)
}

// HandlerFunc adapts a plain function to a native message handler.
type HandlerFunc func(msg []byte) ([]byte, error)

// APIExtension is a basic host-registered extension: a static name, a
// JavaScript API string, and an optional native handler.
type APIExtension struct {
	name    string
	api     string
	handler HandlerFunc
}

// APIExtensionOption configures an APIExtension.
type APIExtensionOption func(*APIExtension)

// WithHandler sets the extension's native message handler.
func WithHandler(fn HandlerFunc) APIExtensionOption {
	return func(e *APIExtension) {
		e.handler = fn
	}
}

// NewAPIExtension creates an extension from a name and API source text.
func NewAPIExtension(name, api string, opts ...APIExtensionOption) *APIExtension {
	e := &APIExtension{
		name: name,
		api:  api,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *APIExtension) Name() string {
	return e.name
}

// JavaScriptAPI returns the API source text.
func (e *APIExtension) JavaScriptAPI() string {
	return e.api
}

// HandleMessage invokes the native handler, if one was provided.
func (e *APIExtension) HandleMessage(msg []byte) ([]byte, error) {
	if e.handler == nil {
		return nil, ErrNoHandler
	}
	return e.handler(msg)
}
