package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// connection wraps one client's long-lived socket (spec.md §4.5): a single
// reader, a single writer, and a buffered send channel so writes are
// serialized per connection.
type connection struct {
	connID string
	conn   *websocket.Conn
	gw     *Gateway
	send   chan []byte

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	userID   string
	roomID   string
	username string

	logger zerolog.Logger
}

// newConnection wraps conn, minting a connID (distinct from the registry's
// session-scoped userID) purely for correlating log lines across a socket's
// lifetime, the way the teacher's server.go tags each accepted connection
// with uuid.New().
func newConnection(gw *Gateway, conn *websocket.Conn, logger zerolog.Logger) *connection {
	connID := uuid.New().String()
	return &connection{
		connID: connID,
		conn:   conn,
		gw:     gw,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
		logger: logger.With().Str("conn_id", connID).Logger(),
	}
}

func (c *connection) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	c.mu.Unlock()
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *connection) setIdentity(userID, roomID, username string) {
	c.mu.Lock()
	c.userID = userID
	c.roomID = roomID
	c.username = username
	c.mu.Unlock()
}

func (c *connection) identity() (userID, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.roomID
}

// snapshot returns the connection's identity fields in one lock span, for
// callers (the Gateway's broadcast fan-out) that need all three together.
func (c *connection) snapshot() (userID, roomID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.roomID, c.username
}

// enqueue schedules raw for delivery, dropping it if the socket is already
// closed or backed up past its buffer.
func (c *connection) enqueue(raw []byte) {
	select {
	case c.send <- raw:
	case <-c.done:
	default:
		c.logger.Warn().Msg("send buffer full, dropping frame")
	}
}

// readPump is the connection's sole reader; it decodes inbound frames and
// hands them to the Gateway for dispatch, per spec.md §5 "commands from a
// single connection are processed in the order received."
func (c *connection) readPump() {
	defer func() {
		c.gw.handleDisconnect(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.gw.dispatch(c, payload)
	}
}

// writePump is the connection's sole writer, serializing outbound frames
// and heartbeat pings onto one socket.
func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
