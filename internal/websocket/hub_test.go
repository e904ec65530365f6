package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/selpix/selpix/internal/auth"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, admin bool, entities ...string) *Client {
	return NewClient(hub, nil, admin, entities)
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got, true
	case <-time.After(50 * time.Millisecond):
		return Message{}, false
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := testHub()

	c1 := mockClient(hub, false)
	c2 := mockClient(hub, false)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := testHub()

	c1 := mockClient(hub, false)
	c2 := mockClient(hub, true)
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)

	hub.Broadcast(NewMessage("product", "created", int64(42), map[string]any{"name": "mouse"}))

	for _, c := range []*Client{c1, c2} {
		got, ok := receive(t, c)
		if !ok {
			t.Fatal("timeout waiting for message")
		}
		if got.Type != "product_created" || got.Entity != "product" || got.ID != "42" {
			t.Errorf("message = %+v", got)
		}
		if got.Extra["name"] != "mouse" {
			t.Errorf("extra = %v", got.Extra)
		}
	}
}

func TestBroadcastFiltering(t *testing.T) {
	hub := testHub()

	member := mockClient(hub, false)
	admin := mockClient(hub, true)
	marginsOnly := mockClient(hub, false, "margin")
	for _, c := range []*Client{member, admin, marginsOnly} {
		hub.Register(c)
		defer hub.Unregister(c)
	}

	hub.Broadcast(NewMessage("payment", "created", "p-1", nil))
	if _, ok := receive(t, member); ok {
		t.Error("member received a payment message")
	}
	if _, ok := receive(t, admin); !ok {
		t.Error("admin missed a payment message")
	}

	hub.Broadcast(NewMessage("product", "updated", int64(1), nil))
	if _, ok := receive(t, marginsOnly); ok {
		t.Error("margin subscriber received a product message")
	}

	hub.Broadcast(NewMessage("margin", "created", int64(2), nil))
	if got, ok := receive(t, marginsOnly); !ok || got.Entity != "margin" {
		t.Errorf("margin subscriber got %+v, %v", got, ok)
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := testHub()

	c := mockClient(hub, false)
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", i, nil))
	}
	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", 999, nil))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("daily_stat", "updated", nil, nil)
	if msg.Type != "daily_stat_updated" || msg.Action != "updated" || msg.ID != "" {
		t.Errorf("message = %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := testHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, false)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", nil, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := testHub()
	withAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: "u-1"})))
		})
	}
	srv := httptest.NewServer(withAuth(HandleWebSocket(hub, nil)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?entities=registration"
	conn, _, err := ws.Dial(ctx, url, nil)
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

	hub.Broadcast(NewMessage("product", "created", 1, nil))
	hub.Broadcast(NewMessage("registration", "updated", 7, nil))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "registration_updated" || got.ID != "7" {
		t.Errorf("message = %+v", got)
	}
}
