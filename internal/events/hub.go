package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/bucketd/internal/platform/logger"
)

// Client is one attached event-stream consumer.
type Client struct {
	ID       uuid.UUID
	Outbound chan Event
	done     chan struct{}
}

// Hub bridges the synchronous publisher to SSE clients. Its Broadcast method
// is registered as a publisher handler; it copies the event into per-client
// buffers and never blocks, so a slow HTTP consumer cannot stall the
// registry controller.
type Hub struct {
	log    *logger.Logger
	buffer int

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewHub(log *logger.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		log:     log.With("component", "EventHub"),
		buffer:  buffer,
		clients: make(map[uuid.UUID]*Client),
	}
}

// Register attaches a new client to the hub.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:       uuid.New(),
		Outbound: make(chan Event, h.buffer),
		done:     make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.log.Debug("event client attached", "client_id", c.ID)
	return c
}

// Close detaches a client and releases its channels.
func (h *Hub) Close(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	if ok {
		close(c.done)
		h.log.Debug("event client detached", "client_id", c.ID)
	}
}

// Broadcast fans an event out to all clients. Satisfies HandlerFunc; it never
// returns an error since the HTTP edge is best-effort.
func (h *Hub) Broadcast(e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Outbound <- e:
		default:
			h.log.Warn("dropping event; client buffer full", "client_id", c.ID, "kind", e.Kind)
		}
	}
	return nil
}

// ServeHTTP streams events to one client until the request context or the
// client is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e := <-client.Outbound:
			b, err := json.Marshal(e)
			if err != nil {
				h.log.Warn("failed to marshal event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\n", e.Kind)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}
