package ipc

import (
	"errors"
	"testing"
)

func TestFilterRouting(t *testing.T) {
	f := NewMessageFilter()

	var gotURL string
	f.Handle(TypeOpenLinkExternal, func(msg Message) error {
		gotURL = msg.Get("url").String()
		return nil
	})

	handled, err := f.OnMessageReceived(NewOpenLinkExternal("https://example.com/"))
	if err != nil {
		t.Fatalf("OnMessageReceived() error = %v", err)
	}
	if !handled {
		t.Fatal("OnMessageReceived() = unhandled for a registered type")
	}
	if gotURL != "https://example.com/" {
		t.Errorf("handler saw url %q", gotURL)
	}
}

func TestFilterUnknownType(t *testing.T) {
	f := NewMessageFilter()

	handled, err := f.OnMessageReceived(NewOpenLinkExternal("x"))
	if err != nil {
		t.Fatalf("OnMessageReceived() error = %v", err)
	}
	if handled {
		t.Error("OnMessageReceived() claimed to handle an unregistered type")
	}
}

func TestFilterHandlerError(t *testing.T) {
	f := NewMessageFilter()
	wantErr := errors.New("handler failed")
	f.Handle(TypePostMessage, func(Message) error {
		return wantErr
	})

	handled, err := f.OnMessageReceived(NewPostMessage("e", 1, nil))
	if !handled {
		t.Fatal("OnMessageReceived() = unhandled")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("OnMessageReceived() error = %v, want %v", err, wantErr)
	}
}

func TestFilterReplacesHandler(t *testing.T) {
	f := NewMessageFilter()

	first, second := 0, 0
	f.Handle(TypePostMessage, func(Message) error { first++; return nil })
	f.Handle(TypePostMessage, func(Message) error { second++; return nil })
	f.Handle(TypePostMessage, nil) // nil handlers are ignored

	_, _ = f.OnMessageReceived(NewPostMessage("e", 1, nil))
	if first != 0 || second != 1 {
		t.Errorf("dispatch counts = %d, %d; want 0, 1", first, second)
	}
}
