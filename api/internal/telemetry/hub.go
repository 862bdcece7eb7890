package telemetry

import (
	"sync"

	"stockroom/api/internal/core/domain"
)

// Hub fans inventory events out to live listeners (websocket clients).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]struct{}
	buffer      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan domain.Event]struct{}),
		buffer:      64,
	}
}

// Subscribe registers a new listener.
func (h *Hub) Subscribe() chan domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan domain.Event, h.buffer) // Buffer to keep slow clients from blocking writers
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a listener channel. Safe to call twice.
func (h *Hub) Unsubscribe(ch chan domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Publish delivers e to every listener without blocking.
func (h *Hub) Publish(e domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- e:
		default: // Drop the event if the buffer is full rather than stall the request
		}
	}
}

// Subscribers reports the number of live listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
