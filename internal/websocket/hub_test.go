package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"compras/internal/auth"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, owner string) *Client {
	return &Client{
		hub:     hub,
		ownerID: owner,
		send:    make(chan []byte, sendBufferSize),
	}
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
	hub := NewHub(slog.Default())
	c1 := mockClient(hub, "u1")
	c2 := mockClient(hub, "u2")

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

func TestNotify_ScopedToOwner(t *testing.T) {
	hub := NewHub(slog.Default())
	mine1 := mockClient(hub, "u1")
	mine2 := mockClient(hub, "u1")
	theirs := mockClient(hub, "u2")
	for _, c := range []*Client{mine1, mine2, theirs} {
		hub.Register(c)
	}

	hub.Notify("u1", "purchase", "created", "p-1")

	for _, c := range []*Client{mine1, mine2} {
		got, ok := receive(t, c)
		if !ok {
			t.Fatal("owner's client missed the event")
		}
		if got.Type != "purchase_created" || got.Entity != "purchase" || got.Action != "created" || got.ID != "p-1" {
			t.Errorf("message = %+v", got)
		}
	}
	if _, ok := receive(t, theirs); ok {
		t.Error("another owner's client received the event")
	}
}

func TestNotify_FullBufferDrops(t *testing.T) {
	hub := NewHub(nil)
	c := mockClient(hub, "u1")
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.Notify("u1", "store", "updated", "s")
	}
	if len(c.send) != sendBufferSize {
		t.Errorf("expected %d queued messages, got %d", sendBufferSize, len(c.send))
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("shopping_item", "deleted", "")
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"shopping_item_deleted","entity":"shopping_item","action":"deleted"}` {
		t.Errorf("json = %s", b)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "u1")
			hub.Register(c)
			hub.Notify("u1", "product", "created", "x")
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if owner := r.URL.Query().Get("owner"); owner != "" {
			r = r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{OwnerID: owner}))
		}
		h(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, resp, err := ws.Dial(ctx, url, nil); err == nil {
		t.Fatal("unauthenticated dial should fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}

	conn, _, err := ws.Dial(ctx, url+"?owner=u1", nil)
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

	hub.Notify("u2", "price", "updated", "other")
	hub.Notify("u1", "price", "updated", "pp-1")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "price_updated" || got.ID != "pp-1" {
		t.Errorf("message = %+v", got)
	}

	conn.Close(ws.StatusNormalClosure, "")
	for hub.ClientCount() != 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never unregistered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
