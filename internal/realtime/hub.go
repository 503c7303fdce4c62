// Package realtime pushes domain events to connected browser sessions over
// websockets. Delivery is best-effort and at-most-once; clients treat an
// event as a hint to refetch.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"internportal/internal/domain/event"
)

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Hub tracks connected clients and routes each event to the sessions in its
// audience.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan event.Event
	done       chan struct{}
	mu         sync.RWMutex
	logger     Logger
}

func NewHub(logger Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan event.Event, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("realtime client registered", "client_id", client.id, "account_id", client.subject.AccountID)

		case client := <-h.unregister:
			h.remove(client)

		case ev := <-h.deliver:
			h.fanOut(ev)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			close(h.done)
			return
		}
	}
}

// attach hands client to Run. It reports false once the hub has stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Debug("realtime client unregistered", "client_id", client.id)
	}
}

// Publish queues ev for local delivery. It never blocks the caller: when the
// queue is full the event is dropped.
func (h *Hub) Publish(_ context.Context, ev event.Event) error {
	select {
	case h.deliver <- ev:
	default:
		h.logger.Warn("realtime queue full, dropping event", "event", ev.Name)
	}
	return nil
}

func (h *Hub) fanOut(ev event.Event) {
	data, err := json.Marshal(wireMessage{Type: ev.Name, Payload: ev.Payload, At: ev.At})
	if err != nil {
		h.logger.Error("failed to marshal event", "event", ev.Name, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.entitled(ev) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("realtime client buffer full", "client_id", client.id)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
