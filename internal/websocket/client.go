package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one dashboard connection.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards inbound frames; dashboards only listen. It returns when
// the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(ws.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
