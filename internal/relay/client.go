package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers fit comfortably.
	maxMessageSize = 64 * 1024
)

// Client is one websocket connection to the relay.
type Client struct {
	// ID is the connection handle that owns this client's peer record.
	ID rooms.ConnID

	hub  *Hub
	conn *websocket.Conn

	// send is drained by WritePump. Only the hub goroutine writes to it and
	// only the hub closes it.
	send chan *protocol.Message

	// room is the room channel this connection is subscribed to. Owned by
	// the hub goroutine.
	room string

	log *slog.Logger
}

// NewClient wraps conn with a fresh connection handle.
func NewClient(hub *Hub, conn *websocket.Conn, sendBuffer int) *Client {
	id := rooms.ConnID(uuid.NewString())
	attrs := []any{"conn", string(id)}
	if conn != nil {
		attrs = append(attrs, "remote", conn.RemoteAddr().String())
	}
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan *protocol.Message, sendBuffer),
		log:  slog.With(attrs...),
	}
}

// deliver queues msg without blocking. Delivery is at-most-once: a full
// buffer drops the message.
func (c *Client) deliver(msg *protocol.Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.log.Warn("send buffer full, dropping message", "type", msg.Type)
		return false
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Info("connection closed unexpectedly", "err", err)
			}
			return
		}

		in := inbound{client: c}
		if err := json.Unmarshal(data, &in.msg); err != nil {
			in.err = fmt.Errorf("%w: %v", protocol.ErrMalformed, err)
		}
		if !c.hub.dispatch(in) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeJSON(message); err != nil {
				c.log.Debug("write failed", "err", err)
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

// writeJSON writes one text frame without HTML-escaping forwarded payloads.
func (c *Client) writeJSON(msg *protocol.Message) error {
	b, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}
