package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 1024
	pollTimeout    = 10 * time.Second

	defaultPollInterval = 30 * time.Second
)

// FeedFunc loads the data pushed on every poll
type FeedFunc func(ctx context.Context) (any, error)

// ClientMessage is sent by the browser. {"type":"refresh"} forces a poll.
type ClientMessage struct {
	Type string `json:"type"`
}

// Conn is one open tab of a portal client
type Conn struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	clientID string

	feed     FeedFunc
	interval time.Duration
	refresh  chan struct{}

	writeMu   sync.Mutex
	closed    atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
}

func NewConn(ctx context.Context, hub *Hub, conn *websocket.Conn, clientID string, feed FeedFunc, interval time.Duration) *Conn {
	connCtx, cancel := context.WithCancel(ctx)
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Conn{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		clientID:  clientID,
		feed:      feed,
		interval:  interval,
		refresh:   make(chan struct{}, 1),
		ctx:       connCtx,
		ctxCancel: cancel,
	}
}

// Serve registers the connection and runs its pumps until the tab goes away
func (c *Conn) Serve() {
	c.hub.Register(c)
	go c.WritePump()
	go c.PollPump()
	c.ReadPump()
}

// ReadPump reads browser messages until the connection fails
func (c *Conn) ReadPump() {
	defer func() {
		c.ctxCancel()
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline",
			slog.String("error", err.Error()),
			slog.String("client_id", c.clientID))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("error", err.Error()),
					slog.String("client_id", c.clientID))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format",
				slog.String("error", err.Error()),
				slog.String("client_id", c.clientID))
			continue
		}
		if msg.Type == "refresh" {
			select {
			case c.refresh <- struct{}{}:
			default:
			}
		}
	}
}

// PollPump pushes the feed on connect and then on every interval
func (c *Conn) PollPump() {
	if c.feed == nil {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.poll()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.poll()
		case <-c.refresh:
			c.poll()
		}
	}
}

func (c *Conn) poll() {
	ctx, cancel := context.WithTimeout(c.ctx, pollTimeout)
	defer cancel()

	data, err := c.feed(ctx)
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		slog.Warn("notification poll failed",
			slog.String("error", err.Error()),
			slog.String("client_id", c.clientID))
		_ = c.hub.Send(c.clientID, TypeError, "Failed to fetch notifications")
		return
	}
	if err := c.hub.Send(c.clientID, TypeNotifications, data); err != nil {
		slog.Error("failed to encode notifications",
			slog.String("error", err.Error()),
			slog.String("client_id", c.clientID))
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				_ = c.writeMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage writes a message to the WebSocket connection in a thread-safe manner
func (c *Conn) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the WebSocket connection
func (c *Conn) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
