package extension

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingClient captures runner callbacks for assertions.
type recordingClient struct {
	mu      sync.Mutex
	replies [][]byte
	errs    []error
}

func (c *recordingClient) HandleMessageFromExtension(_ Runner, reply []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, reply)
}

func (c *recordingClient) HandleRunnerError(_ Runner, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *recordingClient) replyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}

func (c *recordingClient) lastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs[len(c.errs)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestDirectRunnerDispatch(t *testing.T) {
	client := &recordingClient{}
	ext := NewAPIExtension("direct", "", WithHandler(func(msg []byte) ([]byte, error) {
		return append([]byte("re: "), msg...), nil
	}))

	r := NewDirectRunner(ext, client)
	r.Attach()
	r.PostMessage([]byte("hello"))
	r.Detach()

	if got := client.replyCount(); got != 1 {
		t.Fatalf("reply count = %d, want 1", got)
	}
	if got := string(client.replies[0]); got != "re: hello" {
		t.Errorf("reply = %q, want %q", got, "re: hello")
	}
}

func TestDirectRunnerNoHandler(t *testing.T) {
	client := &recordingClient{}
	r := NewDirectRunner(NewAPIExtension("mute", ""), client)
	r.PostMessage([]byte("x"))

	if !errors.Is(client.lastError(), ErrNoHandler) {
		t.Errorf("error = %v, want ErrNoHandler", client.lastError())
	}
}

func TestDirectRunnerHandlerPanic(t *testing.T) {
	client := &recordingClient{}
	ext := NewAPIExtension("bomb", "", WithHandler(func([]byte) ([]byte, error) {
		panic("boom")
	}))

	r := NewDirectRunner(ext, client)
	r.PostMessage([]byte("x"))

	if client.lastError() == nil {
		t.Fatal("handler panic was not reported via the client callback")
	}
	if client.replyCount() != 0 {
		t.Error("panicking handler produced a reply")
	}
}

func TestThreadedRunnerDispatch(t *testing.T) {
	client := &recordingClient{}
	ext := NewAPIExtension("worker", "", WithHandler(func(msg []byte) ([]byte, error) {
		return msg, nil
	}))

	r := NewThreadedRunner(ext, client)
	r.Attach()
	defer r.Detach()

	for i := 0; i < 10; i++ {
		r.PostMessage([]byte{byte(i)})
	}

	waitFor(t, func() bool { return client.replyCount() == 10 })
}

func TestThreadedRunnerDetachDrainsInFlight(t *testing.T) {
	client := &recordingClient{}
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{}, 1)

	ext := NewAPIExtension("slow", "", WithHandler(func(msg []byte) ([]byte, error) {
		close(started)
		<-release
		done <- struct{}{}
		return nil, nil
	}))

	r := NewThreadedRunner(ext, client)
	r.Attach()
	r.PostMessage([]byte("x"))
	<-started

	detached := make(chan struct{})
	go func() {
		r.Detach()
		close(detached)
	}()

	select {
	case <-detached:
		t.Fatal("Detach returned while a dispatch was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("Detach never returned after the dispatch drained")
	}

	select {
	case <-done:
	default:
		t.Fatal("in-flight dispatch did not complete before Detach returned")
	}
}

func TestThreadedRunnerPostAfterDetach(t *testing.T) {
	client := &recordingClient{}
	r := NewThreadedRunner(NewAPIExtension("gone", ""), client)
	r.Attach()
	r.Detach()

	r.PostMessage([]byte("x"))
	if !errors.Is(client.lastError(), ErrRunnerDetached) {
		t.Errorf("error = %v, want ErrRunnerDetached", client.lastError())
	}
}

func TestThreadedRunnerDetachIdempotent(t *testing.T) {
	r := NewThreadedRunner(NewAPIExtension("twice", ""), &recordingClient{})
	r.Attach()
	r.Detach()
	r.Detach() // must not panic or hang
}

func TestThreadedRunnerQueueFull(t *testing.T) {
	client := &recordingClient{}
	block := make(chan struct{})
	ext := NewAPIExtension("stuck", "", WithHandler(func([]byte) ([]byte, error) {
		<-block
		return nil, nil
	}))

	r := NewThreadedRunner(ext, client)
	r.Attach()

	// One message occupies the worker; fill the queue behind it, then one
	// more must be rejected.
	for i := 0; i < defaultRunnerQueueSize+2; i++ {
		r.PostMessage([]byte("x"))
	}

	waitFor(t, func() bool { return errors.Is(client.lastError(), ErrRunnerQueueFull) })

	close(block)
	r.Detach()
}

// TestThreadedRunnerStress destroys runners while dispatches are still in
// flight; it is the resource-safety property that matters most during
// document teardown.
func TestThreadedRunnerStress(t *testing.T) {
	for i := 0; i < 50; i++ {
		client := &recordingClient{}
		ext := NewAPIExtension("stress", "", WithHandler(func(msg []byte) ([]byte, error) {
			time.Sleep(time.Millisecond)
			return msg, nil
		}))

		r := NewThreadedRunner(ext, client)
		r.Attach()

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 8; k++ {
					r.PostMessage([]byte("m"))
				}
			}()
		}
		wg.Wait()
		r.Detach()
	}
}
