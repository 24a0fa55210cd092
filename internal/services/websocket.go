package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketMessage is the frame sent to clients.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	Role     string
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	hub      *Hub
}

func clientKey(role, username string) string {
	return role + ":" + username
}

func (c *Client) key() string {
	return clientKey(c.Role, c.Username)
}

type delivery struct {
	key     string
	message []byte
}

// Hub maintains the set of active clients keyed by role and username.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// NewHub creates a hub. Origins limits websocket upgrades; empty allows any.
func NewHub(origins []string, log *zap.Logger) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, sendBufferSize),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		log: log,
	}
}

// Run serves the hub until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mutex.Lock()
			set, ok := h.clients[client.key()]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.key()] = set
			}
			set[client] = true
			h.mutex.Unlock()
			h.log.Debug("websocket client connected", zap.String("client", client.key()))

		case client := <-h.unregister:
			h.remove(client)
			h.log.Debug("websocket client disconnected", zap.String("client", client.key()))

		case d := <-h.deliver:
			h.mutex.RLock()
			var slow []*Client
			for client := range h.clients[d.key] {
				select {
				case client.Send <- d.message:
				default:
					slow = append(slow, client)
				}
			}
			h.mutex.RUnlock()

			for _, client := range slow {
				h.log.Warn("dropping slow websocket client", zap.String("client", client.key()))
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	set, ok := h.clients[client.key()]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.key())
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for key, set := range h.clients {
		for client := range set {
			close(client.Send)
		}
		delete(h.clients, key)
	}
}

// Register adds a client. Run must be serving.
func (h *Hub) Register(client *Client) {
	client.hub = h
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// SendTo queues a message for every connection of one principal.
func (h *Hub) SendTo(role, username string, message []byte) {
	select {
	case h.deliver <- delivery{key: clientKey(role, username), message: message}:
	default:
		h.log.Warn("websocket delivery queue full", zap.String("client", clientKey(role, username)))
	}
}

// GetConnectedClients returns the number of open connections.
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// HandleWebSocket upgrades the request and attaches the connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, role, username string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		Role:     role,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
	}
	h.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump only keeps the connection alive; clients do not send commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error", zap.String("client", c.key()), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
