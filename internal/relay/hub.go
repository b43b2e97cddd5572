// Package relay is the websocket side of the rendezvous server: connection
// pumps, room presence and blind signal forwarding.
package relay

import (
	"context"
	"log/slog"

	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

// inbound is one frame read from a client, or the reason it could not be
// decoded.
type inbound struct {
	client *Client
	msg    protocol.Message
	err    error
}

// Hub owns every live connection and the room channels they subscribe to.
// All presence and routing logic runs on the goroutine executing Run; the
// room directory is shared with the HTTP handlers and guards itself.
type Hub struct {
	dir *rooms.Directory

	joins    chan *Client
	leaves   chan *Client
	incoming chan inbound
	done     chan struct{}

	// Owned by the Run goroutine.
	clients  map[rooms.ConnID]*Client
	channels map[string]map[rooms.ConnID]*Client
}

// NewHub creates a hub backed by dir.
func NewHub(dir *rooms.Directory) *Hub {
	return &Hub{
		dir:      dir,
		joins:    make(chan *Client),
		leaves:   make(chan *Client),
		incoming: make(chan inbound),
		done:     make(chan struct{}),
		clients:  make(map[rooms.ConnID]*Client),
		channels: make(map[string]map[rooms.ConnID]*Client),
	}
}

// Directory returns the room directory the hub routes against.
func (h *Hub) Directory() *rooms.Directory {
	return h.dir
}

// Run processes registrations, disconnects and client messages until ctx is
// cancelled, then closes every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, c := range h.clients {
			close(c.send)
		}
		clear(h.clients)
		slog.Info("hub stopped")
	}()

	for {
		select {
		case c := <-h.joins:
			h.handleRegister(c)
		case c := <-h.leaves:
			h.handleUnregister(c)
		case in := <-h.incoming:
			h.handleInbound(in)
		case <-ctx.Done():
			return
		}
	}
}

// Register hands c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.joins <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.leaves <- c:
	case <-h.done:
	}
}

func (h *Hub) dispatch(in inbound) bool {
	select {
	case h.incoming <- in:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c.ID] = c
	c.log.Debug("client registered", "clients", len(h.clients))
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	h.onDisconnect(c)
	delete(h.clients, c.ID)
	close(c.send)
	c.log.Debug("client unregistered", "clients", len(h.clients))
}

func (h *Hub) handleInbound(in inbound) {
	c := in.client
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	if in.err != nil {
		c.log.Debug("malformed frame", "err", in.err)
		h.replyError(c, "", "malformed message")
		return
	}

	switch in.msg.Type {
	case protocol.TypeJoinRoom:
		h.onJoinRoom(c, &in.msg)
	case protocol.TypeSignal:
		h.onSignal(c, &in.msg)
	default:
		c.log.Debug("unknown message type", "type", in.msg.Type)
	}
}

// replyError reports a failed operation to c alone.
func (h *Hub) replyError(c *Client, op, reason string) {
	c.deliver(protocol.MustNew(protocol.TypeError, protocol.Error{Op: op, Error: reason}))
}
