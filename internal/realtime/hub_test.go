package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-progress/internal/realtime"
)

func TestHub_PublishToSubscriber(t *testing.T) {
	hub := realtime.NewHub()

	updates, cancel := hub.Subscribe("user:1")
	defer cancel()

	hub.Publish("user:1", "hello")
	hub.Publish("user:2", "not for you")

	select {
	case got := <-updates:
		if got != "hello" {
			t.Errorf("got %v, want hello", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}

	select {
	case got := <-updates:
		t.Errorf("unexpected update %v", got)
	default:
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := realtime.NewHub()

	updates, cancel := hub.Subscribe("user:1")
	cancel()
	cancel() // idempotent

	if _, ok := <-updates; ok {
		t.Error("channel should be closed after cancel")
	}
	if n := hub.Subscribers("user:1"); n != 0 {
		t.Errorf("Subscribers() = %d, want 0", n)
	}
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := realtime.NewHub()

	updates, cancel := hub.Subscribe("user:1")
	defer cancel()

	for i := range 100 {
		hub.Publish("user:1", i)
	}

	if n := hub.Subscribers("user:1"); n != 0 {
		t.Errorf("Subscribers() = %d, want 0 after overflow", n)
	}

	// Buffered updates drain, then the channel reports closed.
	for range updates {
	}
}

func TestHub_Serve_StreamsJSON(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "user:"+r.URL.Query().Get("user"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=42"
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.CloseNow()

	waitForSubscribers(t, hub, "user:42", 1)

	hub.Publish("user:42", map[string]any{"percent": 50})

	var got map[string]any
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got["percent"] != float64(50) {
		t.Errorf("percent = %v, want 50", got["percent"])
	}

	c.Close(websocket.StatusNormalClosure, "")
	waitForSubscribers(t, hub, "user:42", 0)
}

func TestHub_Serve_RequiresOwner(t *testing.T) {
	hub := realtime.NewHub()

	req := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
	rec := httptest.NewRecorder()
	hub.Serve(rec, req, "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func waitForSubscribers(t *testing.T, hub *realtime.Hub, owner string, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Subscribers(owner) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Subscribers(%q) = %d, want %d", owner, hub.Subscribers(owner), want)
}
