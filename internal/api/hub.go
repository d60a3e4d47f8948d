package api

import "sync"

// messageBuffer is how many operator messages a slow subscriber may lag
const messageBuffer = 32

// Hub fans operator messages out to websocket subscribers
type Hub struct {
	mu        sync.RWMutex
	listeners []chan string
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a new listener
func (h *Hub) Subscribe() chan string {
	ch := make(chan string, messageBuffer)
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Publish sends msg to every listener without blocking
func (h *Hub) Publish(msg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- msg:
		default:
			// Drop for subscribers that are not keeping up
		}
	}
}

// Len returns the number of subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
