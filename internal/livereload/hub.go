package livereload

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// wsConn is the part of a gorilla connection the hub writes through.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one registered client connection.
type Conn struct {
	id          string
	remote      string
	connectedAt time.Time
	writeWait   time.Duration

	ws      wsConn
	writeMu sync.Mutex
	open    atomic.Bool
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// Open reports whether writes are still attempted on the connection.
func (c *Conn) Open() bool { return c.open.Load() }

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeWait > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
			return err
		}
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) close() {
	if c.open.Swap(false) {
		_ = c.ws.Close()
	}
}

// ClientInfo describes a connection for inspection.
type ClientInfo struct {
	ID          string    `json:"id"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
	Open        bool      `json:"open"`
}

// Hub is the registry of connections on one socket. Broadcasts never queue:
// a frame goes to the connections open at that moment and nowhere else.
type Hub struct {
	name      string
	writeWait time.Duration

	mu    sync.RWMutex
	conns map[string]*Conn

	delivered atomic.Int64
	failed    atomic.Int64
}

// NewHub creates an empty hub. name is used in logs only.
func NewHub(name string, writeWait time.Duration) *Hub {
	return &Hub{
		name:      name,
		writeWait: writeWait,
		conns:     make(map[string]*Conn),
	}
}

// Register adds an open connection and returns its handle.
func (h *Hub) Register(ws wsConn, remote string) *Conn {
	c := &Conn{
		id:          uuid.New().String(),
		remote:      remote,
		connectedAt: time.Now(),
		writeWait:   h.writeWait,
		ws:          ws,
	}
	c.open.Store(true)

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	log.Debug().Str("socket", h.name).Str("conn_id", c.id).Str("remote", remote).Msg("Client connected")
	return c
}

// Remove closes and forgets a connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		c.close()
		log.Debug().Str("socket", h.name).Str("conn_id", id).Msg("Client disconnected")
	}
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Clients lists the registered connections, oldest first.
func (h *Hub) Clients() []ClientInfo {
	h.mu.RLock()
	out := make([]ClientInfo, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, ClientInfo{ID: c.id, Remote: c.remote, ConnectedAt: c.connectedAt, Open: c.Open()})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// Broadcast marshals v once and writes it to every open connection. It
// returns how many connections accepted the frame. A failed write is a
// transport error: it is logged and the connection is closed.
func (h *Hub) Broadcast(v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		if c.Open() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, data); err != nil {
			h.failed.Add(1)
			log.Warn().Err(err).Str("socket", h.name).Str("conn_id", c.id).Msg("Broadcast write failed")
			h.Remove(c.id)
			continue
		}
		delivered++
	}
	h.delivered.Add(int64(delivered))
	return delivered, nil
}

// Ping writes a ping control frame to c.
func (h *Hub) Ping(c *Conn) error {
	return c.write(websocket.PingMessage, nil)
}

// CloseAll closes every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// Stats returns delivery counters.
func (h *Hub) Stats() map[string]any {
	return map[string]any{
		"clients":   h.Len(),
		"delivered": h.delivered.Load(),
		"failed":    h.failed.Load(),
	}
}
