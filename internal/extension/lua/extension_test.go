package lua

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

const echoScript = `
function handle_message(msg)
  return "re: " .. msg
end
`

func newTestExtension(t *testing.T, script string) *Extension {
	t.Helper()
	ext, err := New("test.echo", "// api", script)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = ext.Close()
	})
	return ext
}

func TestExtensionRoundTrip(t *testing.T) {
	ext := newTestExtension(t, echoScript)

	if ext.Name() != "test.echo" {
		t.Errorf("Name() = %q, want %q", ext.Name(), "test.echo")
	}
	if ext.JavaScriptAPI() != "// api" {
		t.Errorf("JavaScriptAPI() = %q", ext.JavaScriptAPI())
	}

	reply, err := ext.HandleMessage([]byte("ping"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if string(reply) != "re: ping" {
		t.Errorf("reply = %q, want %q", reply, "re: ping")
	}
}

func TestExtensionNilReply(t *testing.T) {
	ext := newTestExtension(t, `function handle_message(msg) end`)

	reply, err := ext.HandleMessage([]byte("x"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply != nil {
		t.Errorf("reply = %q, want nil for a handler that returns nothing", reply)
	}
}

func TestExtensionMissingHandler(t *testing.T) {
	if _, err := New("bad", "", `x = 1`); !errors.Is(err, ErrNoHandlerFunction) {
		t.Errorf("New() error = %v, want ErrNoHandlerFunction", err)
	}
	if _, err := New("bad", "", `handle_message = "not a function"`); !errors.Is(err, ErrNoHandlerFunction) {
		t.Errorf("New() error = %v, want ErrNoHandlerFunction", err)
	}
}

func TestExtensionBadScript(t *testing.T) {
	if _, err := New("bad", "", `function (`); err == nil {
		t.Error("New() accepted a script with syntax errors")
	}
}

func TestExtensionHandlerError(t *testing.T) {
	ext := newTestExtension(t, `
function handle_message(msg)
  error("handler blew up")
end
`)

	_, err := ext.HandleMessage([]byte("x"))
	if err == nil {
		t.Fatal("HandleMessage() error = nil, want script error")
	}
	if !strings.Contains(err.Error(), "handler blew up") {
		t.Errorf("error %q does not carry the script message", err)
	}
}

func TestExtensionSandbox(t *testing.T) {
	// io and os are not opened; touching them must fail, not escape.
	ext := newTestExtension(t, `
function handle_message(msg)
  return tostring(io)
end
`)

	reply, err := ext.HandleMessage([]byte("x"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if string(reply) != "nil" {
		t.Errorf("io = %q inside the sandbox, want nil", reply)
	}
}

func TestExtensionConcurrentDispatch(t *testing.T) {
	ext := newTestExtension(t, `
count = 0
function handle_message(msg)
  count = count + 1
  return tostring(count)
end
`)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := ext.HandleMessage([]byte("x")); err != nil {
					t.Errorf("HandleMessage() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// All 200 dispatches were serialized through the interpreter goroutine.
	reply, err := ext.HandleMessage([]byte("x"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if string(reply) != "201" {
		t.Errorf("final count = %q, want %q", reply, "201")
	}
}

func TestExtensionClose(t *testing.T) {
	ext := newTestExtension(t, echoScript)

	if err := ext.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ext.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := ext.HandleMessage([]byte("x")); !errors.Is(err, ErrExtensionClosed) {
		t.Errorf("HandleMessage() after Close error = %v, want ErrExtensionClosed", err)
	}
}
