package ws

import (
	"sync"

	"realtime-service/internal/models"
)

// Registry owns the connection table and the channel subscription map for
// this process. It is created once at startup and handed to collaborating
// components; nothing reaches it through package-level state.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]*Conn
	channels map[string]map[*Conn]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]*Conn),
		channels: make(map[string]map[*Conn]bool),
	}
}

// Add registers a live connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// Remove drops a connection and every channel subscription it held.
// Channels whose local subscriber set becomes empty are garbage-collected.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c.ID)
	for channelID := range c.subscriptions {
		if subs, ok := r.channels[channelID]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(r.channels, channelID)
			}
		}
	}
	c.subscriptions = map[string]bool{}
}

// Subscribe adds the connection to a channel, creating it lazily. Idempotent.
func (r *Registry) Subscribe(c *Conn, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID]; !ok {
		return // connection already gone
	}
	if r.channels[channelID] == nil {
		r.channels[channelID] = make(map[*Conn]bool)
	}
	r.channels[channelID][c] = true
	c.subscriptions[channelID] = true
}

// Unsubscribe removes the connection from a channel.
func (r *Registry) Unsubscribe(c *Conn, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.channels[channelID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(r.channels, channelID)
		}
	}
	delete(c.subscriptions, channelID)
}

// Deliver fans a marshaled event out to every local subscriber of the
// channel, in call order relative to other Deliver calls from one goroutine.
func (r *Registry) Deliver(channelID string, payload []byte) {
	r.mu.RLock()
	subs := make([]*Conn, 0, len(r.channels[channelID]))
	for c := range r.channels[channelID] {
		subs = append(subs, c)
	}
	r.mu.RUnlock()

	for _, c := range subs {
		c.enqueue(payload)
	}
}

// SendToUser delivers an event to every connection of the user within one
// namespace and reports how many connections received it.
func (r *Registry) SendToUser(namespace, userID string, event models.Event) int {
	payload, err := encodeEvent(event)
	if err != nil {
		return 0
	}

	r.mu.RLock()
	targets := make([]*Conn, 0, 2)
	for _, c := range r.conns {
		if c.UserID == userID && c.Namespace == namespace {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			sent++
		}
	}
	return sent
}

// Count returns the number of live connections on this process.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Subscribers returns the user ids currently subscribed to a channel.
func (r *Registry) Subscribers(channelID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := []string{}
	for c := range r.channels[channelID] {
		users = append(users, c.UserID)
	}
	return users
}
