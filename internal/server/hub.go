package server

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/myatdennis/coursesync/internal/models"
)

// Hub fans realtime events out to every connected websocket session. Each
// session receives every event, including ones attributed to its own user;
// self-echo suppression is a client concern.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	userID  string
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Local development tool: any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*client]struct{}),
	}
}

// Routes returns the path patterns this handler serves.
func (h *Hub) Routes() []string {
	return []string{"/ws"}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the peer goes away. Incoming messages are treated as broadcasts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, userID: r.URL.Query().Get("user_id")}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("session connected", "user", c.userID, "sessions", total)

	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		var ev models.RealtimeEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		h.Publish(ev)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.conn.Close()
	h.logger.Debug("session disconnected", "user", c.userID)
}

// Publish sends an event to every connected session. Sessions whose write
// fails are dropped; their read loop will observe the close.
func (h *Hub) Publish(ev models.RealtimeEvent) {
	h.mu.Lock()
	conns := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.writeMu.Lock()
		err := c.conn.WriteJSON(ev)
		c.writeMu.Unlock()
		if err != nil {
			h.drop(c)
		}
	}
}

// CloseAll disconnects every session, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.conn.Close()
	}
}
