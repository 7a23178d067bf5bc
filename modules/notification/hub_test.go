package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// fakeConn collects written frames. A non-nil stall blocks every write until it is closed.
type fakeConn struct {
	mu        sync.Mutex
	frames    [][]byte
	closed    bool
	fail      bool
	deadlines int
	stall     chan struct{}
	got       chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{got: make(chan struct{}, 256)}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.stall != nil {
		<-c.stall
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, data)
	c.got <- struct{}{}
	return nil
}

func (c *fakeConn) SetWriteDeadline(_ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadlines++
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages(t *testing.T) []Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.frames))
	for _, f := range c.frames {
		var m Message
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("invalid frame %s: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) waitFrames(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i+1)
		}
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(&mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub
}

func TestHub_BroadcastRespectsTaskFilter(t *testing.T) {
	hub := startHub(t)

	all := newFakeConn()
	onlyT1 := newFakeConn()
	onlyT2 := newFakeConn()
	hub.Register(hub.NewClient(all, ""))
	hub.Register(hub.NewClient(onlyT1, "t1"))
	hub.Register(hub.NewClient(onlyT2, "t2"))

	hub.Broadcast(TopicTasks, "t1", Message{Type: "UPDATED", Payload: map[string]any{"id": "t1"}})
	hub.Broadcast(TopicTasks, "t2", Message{Type: "DELETED", Payload: "t2"})

	all.waitFrames(t, 2)
	onlyT1.waitFrames(t, 1)
	onlyT2.waitFrames(t, 1)

	if got := all.messages(t); len(got) != 2 || got[0].Type != "UPDATED" || got[1].Type != "DELETED" {
		t.Errorf("unfiltered client got %+v", got)
	}
	if got := onlyT1.messages(t); len(got) != 1 || got[0].Type != "UPDATED" {
		t.Errorf("t1 client got %+v", got)
	}
	got := onlyT2.messages(t)
	if len(got) != 1 || got[0].Payload != "t2" {
		t.Errorf("t2 client got %+v, want the deleted id as payload", got)
	}
}

func TestHub_OtherTopicsAreIgnored(t *testing.T) {
	hub := startHub(t)

	conn := newFakeConn()
	hub.Register(hub.NewClient(conn, ""))

	hub.Broadcast("other", "", Message{Type: "NOISE"})
	hub.Broadcast(TopicTasks, "t1", Message{Type: "CREATED"})
	conn.waitFrames(t, 1)

	if got := conn.messages(t); len(got) != 1 || got[0].Type != "CREATED" {
		t.Errorf("got %+v, want only the tasks topic", got)
	}
}

func TestHub_FailingClientDoesNotBlockOthers(t *testing.T) {
	hub := startHub(t)

	broken := newFakeConn()
	broken.fail = true
	healthy := newFakeConn()
	hub.Register(hub.NewClient(broken, ""))
	hub.Register(hub.NewClient(healthy, ""))

	hub.Broadcast(TopicTasks, "t1", Message{Type: "CREATED"})
	healthy.waitFrames(t, 1)

	deadline := time.Now().Add(2 * time.Second)
	for !broken.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("expected the failing connection to be closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_StalledClientIsDropped(t *testing.T) {
	hub := startHub(t)

	stalled := newFakeConn()
	stalled.stall = make(chan struct{})
	healthy := newFakeConn()
	stalledClient := hub.NewClient(stalled, "")
	hub.Register(stalledClient)
	hub.Register(hub.NewClient(healthy, ""))
	release := sync.OnceFunc(func() { close(stalled.stall) })
	// runs before the hub cleanup so the stalled writer can exit
	t.Cleanup(release)

	total := clientSendBuffer + 10
	for i := 0; i < total; i++ {
		hub.Broadcast(TopicTasks, "t1", Message{Type: "UPDATED", Payload: i})
		healthy.waitFrames(t, 1)
	}

	got := healthy.messages(t)
	if len(got) != total {
		t.Fatalf("healthy client got %d frames, want %d", len(got), total)
	}
	for i, msg := range got {
		if msg.Payload != float64(i) {
			t.Fatalf("frame %d payload = %v, want %d", i, msg.Payload, i)
		}
	}
	waitClientCount(t, hub, 1)

	release()
	select {
	case <-stalledClient.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stalled client writer did not exit after release")
	}
	if !stalled.isClosed() {
		t.Error("expected the dropped client's connection to be closed")
	}
}

func TestHub_WritesSetDeadline(t *testing.T) {
	hub := startHub(t)

	conn := newFakeConn()
	hub.Register(hub.NewClient(conn, ""))
	hub.Broadcast(TopicTasks, "t1", Message{Type: "CREATED"})
	hub.Broadcast(TopicTasks, "t1", Message{Type: "UPDATED"})
	conn.waitFrames(t, 2)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.deadlines != 2 {
		t.Errorf("SetWriteDeadline called %d times, want 2", conn.deadlines)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)

	conn := newFakeConn()
	client := hub.NewClient(conn, "")
	hub.Register(client)
	waitClientCount(t, hub, 1)

	hub.Unregister(client)
	hub.Unregister(client)
	waitClientCount(t, hub, 0)
}

func waitClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(&mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := newFakeConn()
	hub.Register(hub.NewClient(conn, ""))

	cancel()
	hub.Wait()

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Error("expected client connection to be closed on shutdown")
	}

	if hub.Register(hub.NewClient(newFakeConn(), "")) {
		t.Error("Register() after shutdown should report false")
	}
	// must not block once the hub is gone
	hub.Broadcast(TopicTasks, "t1", Message{Type: "CREATED"})
}

func TestHub_NewClientIDs(t *testing.T) {
	hub := NewHub(&mockLogger{})

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := hub.NewClient(newFakeConn(), "")
		if len(c.ID) != clientIDLength {
			t.Fatalf("client ID %q has length %d, want %d", c.ID, len(c.ID), clientIDLength)
		}
		if seen[c.ID] {
			t.Fatalf("duplicate client ID %q", c.ID)
		}
		seen[c.ID] = true
		if c.Topic != TopicTasks {
			t.Errorf("Topic = %q, want %q", c.Topic, TopicTasks)
		}
	}
}
