package extension

import (
	"io"
	"sync"

	"github.com/caravel-web/caravel/internal/ipc"
	"github.com/caravel-web/caravel/internal/log"
	"github.com/caravel-web/caravel/internal/runtime"
)

// handlerUserDataKey is the document user-data key the per-document
// handler hangs off of.
const handlerUserDataKey = "extension.handler"

// Service owns all registered extensions and coordinates their attachment
// to documents. It binds to exactly one render process for its lifetime:
// registration is open until the first process binds and closed forever
// after.
//
// Registration and process binding are expected on a single coordination
// goroutine; the internal lock protects lookups from other goroutines, not
// concurrent registration.
type Service struct {
	mu sync.RWMutex

	// Registered extensions, keyed by name, plus registration order for
	// deterministic iteration.
	extensions map[string]Extension
	order      []string

	// The bound render process. Write-once: nil until the first process
	// creation event, set exactly once, never cleared.
	process ipc.Process

	registry  *runtime.Registry
	newRunner RunnerFactory
	log       *log.Logger

	// Construction-time registration callbacks; cleared after NewService.
	registerFns []func(*Service)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *Service) {
		s.log = l
	}
}

// WithRunnerFactory overrides how runners are constructed. The default
// factory creates threaded runners.
func WithRunnerFactory(f RunnerFactory) ServiceOption {
	return func(s *Service) {
		s.newRunner = f
	}
}

// WithRegisterFunc installs a callback invoked once, at the end of
// construction, before any process can bind. Test harnesses and embedders
// use it to register extensions ahead of the first render process.
func WithRegisterFunc(fn func(*Service)) ServiceOption {
	return func(s *Service) {
		s.registerFns = append(s.registerFns, fn)
	}
}

// NewService creates an extension service observing reg for new documents.
// Call Close to unsubscribe and release the owned extensions.
func NewService(reg *runtime.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		extensions: make(map[string]Extension),
		registry:   reg,
		newRunner: func(ext Extension, client RunnerClient) Runner {
			return NewThreadedRunner(ext, client)
		},
		log: log.Default().WithComponent("extension"),
	}

	for _, opt := range opts {
		opt(s)
	}

	reg.AddObserver(s)

	for _, fn := range s.registerFns {
		fn(s)
	}
	s.registerFns = nil

	return s
}

// Register adopts ext into the service, keyed by its name.
//
// It returns false, without taking ownership, when an extension with the
// same name is already registered or when the name fails validation; an
// invalid name is logged as a warning. Registering after a render process
// has bound is a contract violation by the host and panics.
func (s *Service) Register(ext Extension) bool {
	if ext == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Extensions must be registered before any render process exists.
	if s.process != nil {
		panic("extension: Register called after render process binding")
	}

	name := ext.Name()
	if _, exists := s.extensions[name]; exists {
		return false
	}

	if !ValidateName(name) {
		s.log.Warn("ignoring extension with invalid name: %s", name)
		return false
	}

	s.extensions[name] = ext
	s.order = append(s.order, name)
	return true
}

// Get returns the registered extension with the given name.
func (s *Service) Get(name string) (Extension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ext, ok := s.extensions[name]
	return ext, ok
}

// Names returns the registered extension names in registration order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Count returns the number of registered extensions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.extensions)
}

// Bound returns true once a render process has bound.
func (s *Service) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.process != nil
}

// OnRenderProcessCreated binds the service to its render process. Only the
// first process ever binds; later process creation events are ignored (a
// documented single-process limitation, not an error).
//
// On first call it sends every registered extension's (name, API source)
// pair to the process in registration order, then attaches handlers and
// runners to documents that predate the binding.
func (s *Service) OnRenderProcessCreated(p ipc.Process) {
	s.mu.Lock()
	if s.process != nil {
		s.mu.Unlock()
		return
	}
	s.process = p
	names := make([]string, len(s.order))
	copy(names, s.order)
	exts := make([]Extension, 0, len(names))
	for _, name := range names {
		exts = append(exts, s.extensions[name])
	}
	s.mu.Unlock()

	for _, ext := range exts {
		msg := ipc.NewRegisterExtension(ext.Name(), ext.JavaScriptAPI())
		if err := p.Send(msg); err != nil {
			s.log.Error("failed to announce extension %q to render process %d: %v",
				ext.Name(), p.ID(), err)
		}
	}

	// Attach extensions to documents that already exist. Documents created
	// from here on are covered by OnDocumentAdded.
	for _, doc := range s.registry.Documents() {
		s.createDocumentHandler(doc)
	}
}

// OnDocumentAdded implements runtime.Observer. Documents created before a
// process binds are picked up later by OnRenderProcessCreated.
func (s *Service) OnDocumentAdded(doc *runtime.Document) {
	if !s.Bound() {
		return
	}
	s.createDocumentHandler(doc)
}

// createDocumentHandler creates the per-document handler and populates it
// with one runner per registered extension. At most one handler is ever
// created per document.
func (s *Service) createDocumentHandler(doc *runtime.Document) {
	if _, exists := doc.UserData(handlerUserDataKey); exists {
		return
	}

	h := newDocumentHandler(doc, s)
	doc.SetUserData(handlerUserDataKey, h)
	s.CreateRunnersForHandler(h, doc.MainFrameID())
}

// CreateRunnersForHandler attaches one runner per registered extension to
// h under frameID, in registration order.
func (s *Service) CreateRunnersForHandler(h *DocumentHandler, frameID int64) {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	exts := make([]Extension, 0, len(names))
	for _, name := range names {
		exts = append(exts, s.extensions[name])
	}
	s.mu.RUnlock()

	for _, ext := range exts {
		r := s.newRunner(ext, h)
		if err := h.AttachRunner(frameID, r); err != nil {
			s.log.Warn("failed to attach runner for %q: %v", ext.Name(), err)
		}
	}
}

// HandlerFor returns the handler attached to doc, if one exists.
func (s *Service) HandlerFor(doc *runtime.Document) (*DocumentHandler, bool) {
	v, ok := doc.UserData(handlerUserDataKey)
	if !ok {
		return nil, false
	}
	h, ok := v.(*DocumentHandler)
	return h, ok
}

// DispatchToFrame routes a renderer-originated message to the runner for
// extensionName under frameID, searching live documents. Returns false
// when no attached runner matches.
func (s *Service) DispatchToFrame(extensionName string, frameID int64, msg []byte) bool {
	for _, doc := range s.registry.Documents() {
		h, ok := s.HandlerFor(doc)
		if !ok {
			continue
		}
		if h.PostMessageToFrame(frameID, extensionName, msg) {
			return true
		}
	}
	return false
}

// postToRenderer forwards an extension reply to the bound render process.
func (s *Service) postToRenderer(extensionName string, frameID int64, payload []byte) {
	s.mu.RLock()
	p := s.process
	s.mu.RUnlock()

	if p == nil {
		return
	}
	if err := p.Send(ipc.NewPostMessage(extensionName, frameID, payload)); err != nil {
		s.log.Warn("failed to post message for %q to render process: %v",
			extensionName, err)
	}
}

// Close unsubscribes from the document registry and releases ownership of
// every registered extension, closing those that hold resources. Handlers
// are not touched: they belong to their documents.
func (s *Service) Close() error {
	s.registry.RemoveObserver(s)

	s.mu.Lock()
	exts := make([]Extension, 0, len(s.order))
	for _, name := range s.order {
		exts = append(exts, s.extensions[name])
	}
	s.extensions = make(map[string]Extension)
	s.order = nil
	s.mu.Unlock()

	var firstErr error
	for _, ext := range exts {
		if c, ok := ext.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
