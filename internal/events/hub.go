// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events

import (
	"slices"
	"sync"
)

// client is one connected stream. A member can hold several connections
// (multiple tabs, multiple devices).
type client struct {
	ch       chan string
	memberID string
}

// Hub fans lifecycle events out to subscribed streams.
type Hub struct {
	clients []client
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe adds a stream for the given member and returns the channel it
// receives frames on.
func (h *Hub) Subscribe(memberID string) chan string {
	ch := make(chan string, 10) // buffered so slow clients never block publishers

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients = append(h.clients, client{ch: ch, memberID: memberID})

	return ch
}

// Unsubscribe removes a stream and closes its channel.
func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients = slices.DeleteFunc(h.clients, func(c client) bool {
		return c.ch == ch
	})

	close(ch)
}

// Publish sends the event to every subscribed stream. Streams with a full
// buffer are skipped rather than blocked on.
func (h *Hub) Publish(event Event) {
	frame := event.Format()
	if frame == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.ch <- frame:
		default:
		}
	}
}

// PublishTo sends the event only to the streams of one member.
func (h *Hub) PublishTo(memberID string, event Event) {
	frame := event.Format()
	if frame == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.memberID != memberID {
			continue
		}
		select {
		case c.ch <- frame:
		default:
		}
	}
}

// ClientCount returns the number of connected streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
