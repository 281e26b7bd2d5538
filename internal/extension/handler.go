package extension

import (
	"sync"

	"github.com/caravel-web/caravel/internal/runtime"
)

// DocumentHandler owns the runners attached to one document, keyed by
// frame identifier. It is created lazily by the Service when a document
// becomes eligible for extensions and hangs off the document's user-data
// mechanism, so it dies with the document rather than with the Service.
type DocumentHandler struct {
	mu sync.Mutex

	doc     *runtime.Document
	service *Service

	runners map[int64][]Runner
	frameOf map[Runner]int64

	closed bool
}

// newDocumentHandler creates a handler for doc, reporting back to service.
func newDocumentHandler(doc *runtime.Document, service *Service) *DocumentHandler {
	return &DocumentHandler{
		doc:     doc,
		service: service,
		runners: make(map[int64][]Runner),
		frameOf: make(map[Runner]int64),
	}
}

// Document returns the document this handler serves.
func (h *DocumentHandler) Document() *runtime.Document {
	return h.doc
}

// AttachRunner appends r to the runner set for frameID and starts it.
// Runners never migrate between frames; there is no detach short of
// closing the whole handler.
func (h *DocumentHandler) AttachRunner(frameID int64, r Runner) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHandlerClosed
	}
	h.runners[frameID] = append(h.runners[frameID], r)
	h.frameOf[r] = frameID
	h.mu.Unlock()

	r.Attach()
	return nil
}

// Runners returns the runners attached under frameID, in attachment order.
func (h *DocumentHandler) Runners(frameID int64) []Runner {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs := make([]Runner, len(h.runners[frameID]))
	copy(rs, h.runners[frameID])
	return rs
}

// RunnerCount returns the total number of attached runners.
func (h *DocumentHandler) RunnerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, rs := range h.runners {
		n += len(rs)
	}
	return n
}

// PostMessageToFrame routes a message from the renderer to the runner
// executing the named extension under frameID. Returns false when no such
// runner is attached.
func (h *DocumentHandler) PostMessageToFrame(frameID int64, extensionName string, msg []byte) bool {
	h.mu.Lock()
	var target Runner
	for _, r := range h.runners[frameID] {
		if r.Extension().Name() == extensionName {
			target = r
			break
		}
	}
	h.mu.Unlock()

	if target == nil {
		return false
	}
	target.PostMessage(msg)
	return true
}

// HandleMessageFromExtension forwards an extension reply to the bound
// render process, addressed to the frame the runner is attached under.
func (h *DocumentHandler) HandleMessageFromExtension(r Runner, reply []byte) {
	h.mu.Lock()
	frameID, ok := h.frameOf[r]
	closed := h.closed
	h.mu.Unlock()

	if closed || !ok {
		return
	}
	h.service.postToRenderer(r.Extension().Name(), frameID, reply)
}

// HandleRunnerError records a dispatch failure. Failures are operator
// visible but never fatal.
func (h *DocumentHandler) HandleRunnerError(r Runner, err error) {
	h.service.log.Warn("extension %q dispatch failed: %v", r.Extension().Name(), err)
}

// Close detaches every runner, waiting for their in-flight work to drain,
// and marks the handler dead. The document's teardown invokes this through
// the user-data mechanism.
func (h *DocumentHandler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []Runner
	for _, rs := range h.runners {
		all = append(all, rs...)
	}
	h.runners = nil
	h.frameOf = nil
	h.mu.Unlock()

	for _, r := range all {
		r.Detach()
	}
	return nil
}
