package stream

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/engine"
)

// Hub fans out engine events to all connected websocket clients.
// Broadcast never blocks: a client that cannot keep up has events
// dropped, and catches up from the next full sync on reconnect.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id   string
	send chan []byte   // pre-encoded event frames
	done chan struct{} // closed on unsubscribe
}

// envelope is the wire shape of every server-to-client message.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]*client),
	}
}

// Broadcast encodes ev once and offers it to every client.
func (h *Hub) Broadcast(ev engine.Event) {
	payload, err := encode(ev)
	if err != nil {
		h.log.Error("encode event", zap.String("type", ev.Type()), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// client too slow, drop the event to keep the broadcast moving
		}
	}
}

func encode(ev engine.Event) ([]byte, error) {
	return json.Marshal(envelope{Type: ev.Type(), Data: ev})
}

func (h *Hub) subscribe() *client {
	c := &client{
		id:   uuid.NewString(),
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.done)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
