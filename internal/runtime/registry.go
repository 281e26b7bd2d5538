// Package runtime tracks the documents the embedding runtime has open and
// notifies observers as documents appear. It is the lifecycle source the
// extension layer subscribes to.
package runtime

import (
	"fmt"
	"sync"
)

// Observer receives document lifecycle notifications.
// Callbacks are invoked outside the registry lock; observers must not
// assume any particular goroutine but are never called concurrently for
// a single registry operation.
type Observer interface {
	OnDocumentAdded(doc *Document)
}

// Registry owns all live documents, in creation order.
type Registry struct {
	mu sync.RWMutex

	docs []*Document
	byID map[int64]*Document

	observers []Observer

	nextDocID   int64
	nextFrameID int64
}

// NewRegistry creates an empty document registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[int64]*Document),
	}
}

// AddObserver subscribes an observer to document lifecycle events.
func (r *Registry) AddObserver(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// RemoveObserver unsubscribes a previously added observer.
func (r *Registry) RemoveObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.observers {
		if existing == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// CreateDocument creates a document for url, assigns it a main frame, and
// notifies observers.
func (r *Registry) CreateDocument(url string) *Document {
	r.mu.Lock()
	r.nextDocID++
	r.nextFrameID++
	doc := &Document{
		id:          r.nextDocID,
		mainFrameID: r.nextFrameID,
		url:         url,
		userData:    make(map[string]any),
	}
	r.docs = append(r.docs, doc)
	r.byID[doc.id] = doc

	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	// Notify outside the lock with panic recovery, so a misbehaving
	// observer cannot wedge the registry.
	for _, o := range observers {
		func() {
			defer func() {
				recover()
			}()
			o.OnDocumentAdded(doc)
		}()
	}

	return doc
}

// CloseDocument removes the document and tears down its auxiliary state.
func (r *Registry) CloseDocument(id int64) error {
	r.mu.Lock()
	doc, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("runtime: no document with id %d", id)
	}
	delete(r.byID, id)
	for i, d := range r.docs {
		if d == doc {
			r.docs = append(r.docs[:i], r.docs[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	return doc.close()
}

// CloseAll closes every live document in creation order.
func (r *Registry) CloseAll() error {
	for _, doc := range r.Documents() {
		if err := r.CloseDocument(doc.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the document with the given id.
func (r *Registry) Get(id int64) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[id]
	return doc, ok
}

// Documents returns all live documents in creation order.
func (r *Registry) Documents() []*Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]*Document, len(r.docs))
	copy(docs, r.docs)
	return docs
}

// Count returns the number of live documents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
