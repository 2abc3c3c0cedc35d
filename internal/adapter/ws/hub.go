// Package ws pushes application change events to connected admin sessions.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"zro-loans/internal/domain/feed"
	"zro-loans/internal/infrastructure/metrics"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan feed.Event
}

// Hub owns the client set; register, unregister and broadcast are serialised through Run.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan feed.Event
	countReq   chan chan int
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewHub(m *metrics.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan feed.Event, 64),
		countReq:   make(chan chan int),
		done:       make(chan struct{}),
		// admin UI may be served from another origin; the route itself is token-gated
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		metrics:  m,
		log:      log,
	}
}

// Run blocks until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				h.drop(c)
			}
			return
		case r := <-h.countReq:
			r <- len(h.clients)
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.FeedClients(1)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
		case e := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- e:
				default:
					// too slow; it reloads the list on reconnect
					h.log.Warn("admin feed client dropped, send buffer full")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.metrics.FeedClients(-1)
}

// Broadcast queues e for every connected client. It is a no-op once the hub stopped.
func (h *Hub) Broadcast(e feed.Event) {
	select {
	case h.broadcast <- e:
	case <-h.done:
	}
}

// Clients reports how many admin sessions are connected.
func (h *Hub) Clients() int {
	r := make(chan int, 1)
	select {
	case h.countReq <- r:
		return <-r
	case <-h.done:
		return 0
	}
}

// ServeWS upgrades an already authorised admin request.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return nil
	}
	cl := &client{conn: conn, send: make(chan feed.Event, sendBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go h.writePump(cl)
	go h.readPump(cl)
	return nil
}

// readPump only consumes control frames; admin sessions do not send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case e, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(e); err != nil {
				h.log.Debug("ws write failed", "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
