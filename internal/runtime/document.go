package runtime

import (
	"errors"
	"io"
	"sync"
)

// Document represents one loaded document/frame tree in the runtime.
// Auxiliary per-document state (such as the extension layer's handler) is
// attached through the user-data mechanism and is torn down with the document.
type Document struct {
	mu sync.Mutex

	id          int64
	mainFrameID int64
	url         string

	userData map[string]any
	closed   bool
}

// ID returns the document identifier.
func (d *Document) ID() int64 {
	return d.id
}

// MainFrameID returns the identifier of the document's top frame.
func (d *Document) MainFrameID() int64 {
	return d.mainFrameID
}

// URL returns the document URL.
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// SetUserData attaches auxiliary state to the document under key.
// Values implementing io.Closer are closed when the document is closed.
func (d *Document) SetUserData(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.userData[key] = value
}

// UserData returns the auxiliary state attached under key.
func (d *Document) UserData(key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.userData[key]
	return v, ok
}

// IsClosed returns true if the document has been closed.
func (d *Document) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// close tears down the document's auxiliary state. User data values that
// implement io.Closer are closed; the first error is reported after all
// values have been visited.
func (d *Document) close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	data := d.userData
	d.userData = nil
	d.mu.Unlock()

	var errs []error
	for _, v := range data {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
