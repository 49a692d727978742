// Package realtime pushes progress updates to connected clients over WebSocket.
package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	defaultBuffer = 16
	writeTimeout  = 5 * time.Second
)

type subscriber struct {
	ch chan any
}

// Hub fans out payloads to the subscribers of an owner. A subscriber whose
// buffer is full is dropped rather than blocking the publisher.
type Hub struct {
	subs   map[string]map[*subscriber]struct{}
	buffer int
	mu     sync.Mutex
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a subscriber for owner. The returned channel is closed
// when the subscriber is dropped or cancel is called.
func (h *Hub) Subscribe(owner string) (<-chan any, func()) {
	sub := &subscriber{ch: make(chan any, h.buffer)}

	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[*subscriber]struct{})
	}
	h.subs[owner][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.remove(owner, sub)
	}
	return sub.ch, cancel
}

// Publish delivers payload to every subscriber of owner without blocking.
func (h *Hub) Publish(owner string, payload any) {
	if owner == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[owner] {
		select {
		case sub.ch <- payload:
		default:
			slog.Warn("dropping slow progress subscriber", "owner", owner)
			h.remove(owner, sub)
		}
	}
}

// Subscribers returns the number of live subscribers of owner.
func (h *Hub) Subscribers(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner])
}

// remove must be called with h.mu held.
func (h *Hub) remove(owner string, sub *subscriber) {
	subs, ok := h.subs[owner]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subs, owner)
	}
}

// Serve upgrades the request to a WebSocket and streams owner's updates as
// JSON until either side goes away. Callers resolve and authorize owner first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, owner string) {
	if owner == "" {
		http.Error(w, "progress owner is required", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels
	// ctx when the peer disconnects.
	ctx := c.CloseRead(r.Context())

	updates, cancel := h.Subscribe(owner)
	defer cancel()

	slog.Debug("progress subscriber connected", "owner", owner)
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-updates:
			if !ok {
				c.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := write(ctx, c, payload); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Warn("websocket write failed", "owner", owner, "error", err)
				}
				return
			}
		}
	}
}

func write(ctx context.Context, c *websocket.Conn, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, payload)
}
