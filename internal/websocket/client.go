package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one feed connection. An empty entity set subscribes to all.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	send     chan []byte
	admin    bool
	entities map[string]bool
}

func NewClient(hub *Hub, conn *ws.Conn, admin bool, entities []string) *Client {
	c := &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		admin: admin,
	}
	if len(entities) > 0 {
		c.entities = make(map[string]bool, len(entities))
		for _, e := range entities {
			c.entities[e] = true
		}
	}
	return c
}

func (c *Client) wants(entity string) bool {
	if private[entity] && !c.admin {
		return false
	}
	return c.entities == nil || c.entities[entity]
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

// readPump discards incoming messages; the feed is one-way.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
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
