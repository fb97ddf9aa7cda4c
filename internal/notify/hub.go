// Package notify fans out live notices to connected admin clients.
package notify

import (
	"log/slog"
	"sync"
)

// Notification is the frame sent to every listener.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Listener receives notifications.  Send must not block for long; a
// listener whose Send fails is dropped from the hub.
type Listener interface {
	Send(n Notification) error
}

// Hub is a concurrency-safe set of listeners.  The zero value is not
// usable; call NewHub.
type Hub struct {
	mu        sync.RWMutex
	listeners map[Listener]struct{}
	logger    *slog.Logger
}

func NewHub(lg *slog.Logger) *Hub {
	if lg == nil {
		lg = slog.Default()
	}
	return &Hub{listeners: make(map[Listener]struct{}), logger: lg}
}

// Register adds l.  Registering the same listener twice is a no-op.
func (h *Hub) Register(l Listener) {
	h.mu.Lock()
	h.listeners[l] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes l if present.
func (h *Hub) Unregister(l Listener) {
	h.mu.Lock()
	delete(h.listeners, l)
	h.mu.Unlock()
}

// Len reports the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Broadcast sends a "notification" frame carrying message to every
// listener.  Sends happen outside the lock on a snapshot of the set.
func (h *Hub) Broadcast(message string) {
	n := Notification{Type: "notification", Message: message}

	h.mu.RLock()
	snapshot := make([]Listener, 0, len(h.listeners))
	for l := range h.listeners {
		snapshot = append(snapshot, l)
	}
	h.mu.RUnlock()

	for _, l := range snapshot {
		if err := l.Send(n); err != nil {
			h.logger.Warn("dropping notification listener", "err", err)
			h.Unregister(l)
		}
	}
}
