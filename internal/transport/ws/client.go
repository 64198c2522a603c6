package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxCommandSize = 1024
	sendBuffer     = 16
)

// Client is one live control-channel connection, owned by the hub.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	lastSeen time.Time
}

// enqueue hands data to the write pump without blocking. A client whose
// buffer is full simply misses this message; it resyncs on the next push.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("client", c.id).Msg("Client send buffer full, dropping message")
	}
}

// readPump reads command lines until the connection dies, handing each to
// the hub's command handler. The per-client error/status reply goes back
// only to this client. Commands run against the background context, not
// the upgrade request's: the request context dies as soon as the HTTP
// handler returns, while sink calls carry their own bounded timeouts.
func (c *Client) readPump() {
	ctx := context.Background()
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastSeen = time.Now()
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client", c.id).Msg("Control channel read error")
			}
			return
		}
		c.lastSeen = time.Now()

		reply := c.hub.handleCommand(ctx, string(raw))
		if reply != "" {
			if data, err := (Message{Message: reply}).encode(); err == nil {
				c.enqueue(data)
			}
		}
	}
}

// writePump delivers queued messages and keepalive pings. It runs
// independently per connection so one slow client never blocks another.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
