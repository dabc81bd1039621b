package signaling

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// HubConfig configures a Hub.
type HubConfig struct {
	InformationInterval time.Duration // period of the information broadcast (default: 1s)
	WriteWait           time.Duration // deadline for one socket write
	PongWait            time.Duration // read deadline, extended by every pong
	PingPeriod          time.Duration // must be shorter than PongWait
	MaxMessageSize      int64         // read limit per message
	SendBuffer          int           // queued messages per client before dropping
}

// DefaultHubConfig returns the settings used by the session server.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		InformationInterval: time.Second,
		WriteWait:           10 * time.Second,
		PongWait:            60 * time.Second,
		PingPeriod:          54 * time.Second,
		MaxMessageSize:      64 << 10,
		SendBuffer:          256,
	}
}

// Hub connects websocket clients to a Mesh. Each client gets one read loop
// and one write pump; the mesh is guarded by the hub mutex.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	mesh    *Mesh
	clients map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub with an empty session.
func NewHub(cfg HubConfig) *Hub {
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mesh:    NewMesh(),
		clients: make(map[string]*client),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// deliver queues envelopes for their recipients. Callers hold h.mu.
func (h *Hub) deliver(envs []Envelope) {
	for _, env := range envs {
		c, ok := h.clients[env.To]
		if !ok {
			continue
		}
		data, err := json.Marshal(env.Message)
		if err != nil {
			log.WithError(err).WithField("type", env.Message.Type).Error("failed to encode message")
			continue
		}
		select {
		case c.send <- data:
		default:
			log.WithFields(log.Fields{"client": c.id, "type": env.Message.Type}).Warn("send buffer full, dropping message")
		}
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	id, envs := h.mesh.Join()
	c := &client{id: id, conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}
	h.clients[id] = c
	h.deliver(envs)
	h.mu.Unlock()

	log.WithFields(log.Fields{"client": id, "remote": conn.RemoteAddr().String()}).Info("client joined")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.leave(c)

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("client", c.id).Warn("websocket read failed")
			}
			return
		}

		h.mu.Lock()
		envs, err := h.mesh.Handle(c.id, raw)
		if err != nil {
			log.WithError(err).WithField("client", c.id).Warn("ignoring message")
		}
		h.deliver(envs)
		h.mu.Unlock()
	}
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	envs := h.mesh.Leave(c.id)
	delete(h.clients, c.id)
	close(c.send)
	h.deliver(envs)
	h.mu.Unlock()

	log.WithField("client", c.id).Info("client left")
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WithError(err).WithField("client", c.id).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast sends the current client information to every client.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	info := h.mesh.Information()
	envs := make([]Envelope, 0, len(h.clients))
	for id := range h.clients {
		envs = append(envs, to(id, TypeInformation, info))
	}
	h.deliver(envs)
}

// Run broadcasts client information every InformationInterval until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.InformationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast()
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}
