package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastAppointmentChange(t *testing.T) {
	hub := NewHub(nil)
	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)

	msg := NewMessage("appointment", "created", 1707123456789, map[string]any{"time": "09:00"})
	msg.Key = "2024-1-5"
	if n := hub.Broadcast(msg); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "appointment_created" || got.Key != "2024-1-5" || got.ID != 1707123456789 {
				t.Errorf("got %+v", got)
			}
			if got.Extra["time"] != "09:00" {
				t.Errorf("extra = %v", got.Extra)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(nil)
	if n := hub.Broadcast(NewMessage("sos", "active", 0, nil)); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestBroadcastFullBufferDrops(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub)
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), nil))
	}
	if n := hub.Broadcast(NewMessage("test", "dropped", 999, nil)); n != 0 {
		t.Errorf("delivered = %d to a full client", n)
	}
	if hub.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", hub.Dropped())
	}
	if len(c.send) != sendBufferSize {
		t.Errorf("buffered = %d, want %d", len(c.send), sendBufferSize)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(nil)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", 0, nil))
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketDeliversBroadcast(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(HandleWebSocket(hub, nil, slog.Default()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	hub.Broadcast(NewMessage("sos", "active", 0, map[string]any{"patient": "John Doe"}))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "sos_active" || got.Extra["patient"] != "John Doe" {
		t.Errorf("got %+v", got)
	}
}
