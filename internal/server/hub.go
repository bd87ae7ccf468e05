package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Hub keeps the latest display view of every body and pushes new views to
// connected WebSocket clients. A client that falls behind skips
// intermediate views but always receives the latest view of each body.
type Hub struct {
	mu      sync.RWMutex
	views   map[int]gesture.View
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	// dirty holds the bodies whose latest view the client has not been sent.
	// Guarded by Hub.mu.
	dirty map[int]struct{}
	wake  chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:  conn,
		dirty: make(map[int]struct{}),
		wake:  make(chan struct{}, 1),
	}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		views:   make(map[int]gesture.View),
		clients: make(map[*client]struct{}),
	}
}

// Publish records view as the current view of its body and schedules it
// for every client. It never blocks on a client.
func (h *Hub) Publish(view gesture.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.views[view.BodyIndex] = view
	for c := range h.clients {
		h.markLocked(c, view.BodyIndex)
	}
}

// markLocked flags body as pending for c and wakes its writer; h.mu must be held.
func (h *Hub) markLocked(c *client, body int) {
	c.dirty[body] = struct{}{}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// pending returns the current views of the bodies flagged for c, ordered by
// body index, and clears the flags.
func (h *Hub) pending(c *client) []gesture.View {
	h.mu.Lock()
	defer h.mu.Unlock()

	views := make([]gesture.View, 0, len(c.dirty))
	for body := range c.dirty {
		if v, ok := h.views[body]; ok {
			views = append(views, v)
		}
		delete(c.dirty, body)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].BodyIndex < views[j].BodyIndex
	})
	return views
}

// Views returns the current view of every body, ordered by body index.
func (h *Hub) Views() []gesture.View {
	h.mu.RLock()
	defer h.mu.RUnlock()

	views := make([]gesture.View, 0, len(h.views))
	for _, v := range h.views {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].BodyIndex < views[j].BodyIndex
	})
	return views
}

// Clients returns the number of connected WebSocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket and streams views until the
// client disconnects. The current views are sent first.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := newClient(conn)

	h.mu.Lock()
	for body := range h.views {
		h.markLocked(c, body)
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(done)
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-c.wake:
		}

		for _, v := range h.pending(c) {
			msg, err := json.Marshal(v)
			if err != nil {
				log.Printf("Failed to encode view for body %d: %v", v.BodyIndex, err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
