package runtime

import (
	"errors"
	"testing"
)

type recordingObserver struct {
	added []*Document
}

func (o *recordingObserver) OnDocumentAdded(doc *Document) {
	o.added = append(o.added, doc)
}

type panickyObserver struct{}

func (panickyObserver) OnDocumentAdded(*Document) {
	panic("observer misbehaved")
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestCreateDocument(t *testing.T) {
	r := NewRegistry()

	doc := r.CreateDocument("https://example.com/")
	if doc.URL() != "https://example.com/" {
		t.Errorf("URL() = %q", doc.URL())
	}
	if doc.ID() == 0 || doc.MainFrameID() == 0 {
		t.Error("document ids must be nonzero")
	}

	got, ok := r.Get(doc.ID())
	if !ok || got != doc {
		t.Error("Get() did not return the created document")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestDocumentIDsAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[int64]bool)

	for i := 0; i < 10; i++ {
		doc := r.CreateDocument("about:blank")
		if seen[doc.ID()] {
			t.Fatalf("duplicate document id %d", doc.ID())
		}
		if seen[doc.MainFrameID()] {
			t.Fatalf("frame id %d collides with a document id", doc.MainFrameID())
		}
		seen[doc.ID()] = true
		seen[doc.MainFrameID()] = true
	}
}

func TestObserverNotified(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.AddObserver(obs)

	d1 := r.CreateDocument("a")
	d2 := r.CreateDocument("b")

	if len(obs.added) != 2 || obs.added[0] != d1 || obs.added[1] != d2 {
		t.Errorf("observer saw %d documents, want both in creation order", len(obs.added))
	}

	r.RemoveObserver(obs)
	r.CreateDocument("c")
	if len(obs.added) != 2 {
		t.Error("removed observer was still notified")
	}
}

func TestPanickingObserverDoesNotWedgeRegistry(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.AddObserver(panickyObserver{})
	r.AddObserver(obs)

	doc := r.CreateDocument("about:blank")

	if len(obs.added) != 1 {
		t.Error("observer after the panicking one was not notified")
	}
	if _, ok := r.Get(doc.ID()); !ok {
		t.Error("document was lost after an observer panic")
	}
}

func TestCloseDocumentClosesUserData(t *testing.T) {
	r := NewRegistry()
	doc := r.CreateDocument("about:blank")

	rec := &closeRecorder{}
	doc.SetUserData("aux", rec)
	doc.SetUserData("plain", 42) // non-Closer values are fine

	if err := r.CloseDocument(doc.ID()); err != nil {
		t.Fatalf("CloseDocument() error = %v", err)
	}
	if !rec.closed {
		t.Error("user data Closer was not closed with the document")
	}
	if !doc.IsClosed() {
		t.Error("IsClosed() = false after CloseDocument")
	}
	if _, ok := r.Get(doc.ID()); ok {
		t.Error("closed document still registered")
	}

	// Attaching to a closed document is a no-op.
	doc.SetUserData("late", &closeRecorder{})
	if _, ok := doc.UserData("late"); ok {
		t.Error("SetUserData succeeded on a closed document")
	}
}

func TestCloseDocumentReportsCloserErrors(t *testing.T) {
	r := NewRegistry()
	doc := r.CreateDocument("about:blank")

	wantErr := errors.New("teardown failed")
	doc.SetUserData("aux", &closeRecorder{err: wantErr})

	if err := r.CloseDocument(doc.ID()); !errors.Is(err, wantErr) {
		t.Errorf("CloseDocument() error = %v, want %v", err, wantErr)
	}
}

func TestCloseDocumentUnknown(t *testing.T) {
	r := NewRegistry()
	if err := r.CloseDocument(999); err == nil {
		t.Error("CloseDocument() accepted an unknown id")
	}
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry()
	recs := make([]*closeRecorder, 3)
	for i := range recs {
		recs[i] = &closeRecorder{}
		doc := r.CreateDocument("about:blank")
		doc.SetUserData("aux", recs[i])
	}

	if err := r.CloseAll(); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d after CloseAll, want 0", r.Count())
	}
	for i, rec := range recs {
		if !rec.closed {
			t.Errorf("document %d user data was not closed", i)
		}
	}
}

func TestDocumentsSnapshot(t *testing.T) {
	r := NewRegistry()
	d1 := r.CreateDocument("a")
	d2 := r.CreateDocument("b")

	docs := r.Documents()
	if len(docs) != 2 || docs[0] != d1 || docs[1] != d2 {
		t.Fatal("Documents() not in creation order")
	}

	// Mutating the snapshot must not affect the registry.
	docs[0] = nil
	if got := r.Documents(); got[0] != d1 {
		t.Error("Documents() returned a live slice")
	}
}
