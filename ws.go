package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient has a single pending snapshot. Every snapshot is the full
// state, so a slow client only ever needs the newest one.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// wsHub fans vehicle snapshots out to every connected map client. broadcast
// runs on the publisher goroutine and never waits on a client's socket.
type wsHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newWsHub() *wsHub {
	return &wsHub{clients: make(map[*wsClient]struct{})}
}

// handler upgrades the request and queues the current snapshot right away
// so the client can centre its map before the next move.
func (h *wsHub) handler(snapshot func() []Vehicle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade error", "err", err)
			return
		}
		data, err := marshalVehicles(snapshot())
		if err != nil {
			slog.Error("ws marshal error", "err", err)
			_ = conn.Close()
			return
		}
		c := &wsClient{conn: conn, send: make(chan []byte, 1)}
		c.send <- data

		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()

		go h.writePump(c)
		go h.readPump(c)
	}
}

// remove is safe to call more than once.
func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

func (h *wsHub) broadcast(vehicles []Vehicle) {
	data, err := marshalVehicles(vehicles)
	if err != nil {
		slog.Error("ws marshal error", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
			continue
		default:
		}
		// replace the stale pending snapshot
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// closeAll disconnects every client; used on shutdown.
func (h *wsHub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
}

func (h *wsHub) writePump(c *wsClient) {
	defer h.remove(c)
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *wsHub) readPump(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func marshalVehicles(v []Vehicle) ([]byte, error) {
	if v == nil {
		v = []Vehicle{}
	}
	return json.Marshal(v)
}
