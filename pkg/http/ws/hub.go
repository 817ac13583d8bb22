package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub tracks one live feed connection per principal.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection // principal -> connection
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// RegisterConnection adds a connection for a principal, replacing any older one.
func (h *Hub) RegisterConnection(principal string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[principal]; exists && old != conn {
		old.Close()
	}

	h.connections[principal] = conn
	h.logger.Debug().Str("principal", principal).Int("connections", len(h.connections)).Msg("connection registered")
}

// UnregisterConnection removes conn if it is still the principal's current connection.
func (h *Hub) UnregisterConnection(principal string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, exists := h.connections[principal]
	if !exists || current != conn {
		return
	}
	current.Close()
	delete(h.connections, principal)
	h.logger.Debug().Str("principal", principal).Msg("connection unregistered")
}

// BroadcastAll sends a message to every connected principal.
func (h *Hub) BroadcastAll(msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var firstErr error
	for principal, conn := range h.connections {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).Str("principal", principal).Msg("broadcast_all_send_failed")
		}
	}
	return firstErr
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends queued messages and keeps the peer alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler until the peer goes away.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
