package relay

import (
	"errors"

	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

func (h *Hub) onJoinRoom(c *Client, msg *protocol.Message) {
	var req protocol.JoinRoom
	if err := msg.Decode(&req); err != nil {
		c.log.Debug("bad join-room payload", "err", err)
		h.replyError(c, protocol.TypeJoinRoom, "malformed join-room payload")
		return
	}
	if req.RoomID == "" || req.UserID == "" {
		h.replyError(c, protocol.TypeJoinRoom, "roomId and userId are required")
		return
	}

	peer := rooms.Peer{ID: req.UserID, Name: req.Name, Conn: c.ID}
	room, change, err := h.dir.AddPeer(req.RoomID, peer)
	if err != nil {
		if errors.Is(err, rooms.ErrRoomNotFound) {
			c.log.Info("join failed: room not found", "room", req.RoomID)
			h.replyError(c, protocol.TypeJoinRoom, "Room not found")
			return
		}
		c.log.Error("join failed", "room", req.RoomID, "err", err)
		h.replyError(c, protocol.TypeJoinRoom, err.Error())
		return
	}

	// The connection's earlier records are gone; tell their rooms.
	for _, ev := range change.Evicted {
		if ev.RoomID != room.ID {
			h.unsubscribe(c, ev.RoomID)
		}
		h.publish(ev.RoomID, protocol.MustNew(protocol.TypePeerLeft, ev.Peer.Public()), c.ID)
	}
	if prev := change.Superseded; prev != nil {
		if old, ok := h.clients[prev.Conn]; ok {
			h.unsubscribe(old, room.ID)
		}
		c.log.Info("peer record superseded", "room", room.ID, "peer", prev.ID, "old_conn", string(prev.Conn))
	}

	h.subscribe(c, room.ID)
	c.deliver(protocol.MustNew(protocol.TypePeers, room.PublicPeers(c.ID)))
	h.publish(room.ID, protocol.MustNew(protocol.TypePeerJoined, peer.Public()), c.ID)
	c.deliver(protocol.MustNew(protocol.TypeJoined, protocol.Joined{RoomID: room.ID}))

	c.log.Info("peer joined", "room", room.ID, "peer", peer.ID, "peers", len(room.Peers))
}

func (h *Hub) onDisconnect(c *Client) {
	roomID, peer, ok := h.dir.RemovePeerByConnection(c.ID)
	if c.room != "" {
		h.unsubscribe(c, c.room)
	}
	if !ok {
		return
	}
	h.publish(roomID, protocol.MustNew(protocol.TypePeerLeft, peer.Public()), c.ID)
	c.log.Info("peer left", "room", roomID, "peer", peer.ID)
}

func (h *Hub) subscribe(c *Client, roomID string) {
	if c.room != "" && c.room != roomID {
		h.unsubscribe(c, c.room)
	}
	subs, ok := h.channels[roomID]
	if !ok {
		subs = make(map[rooms.ConnID]*Client)
		h.channels[roomID] = subs
	}
	subs[c.ID] = c
	c.room = roomID
}

func (h *Hub) unsubscribe(c *Client, roomID string) {
	if subs, ok := h.channels[roomID]; ok {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(h.channels, roomID)
		}
	}
	if c.room == roomID {
		c.room = ""
	}
}

// publish fans msg out to a room channel, skipping exclude. Delivery is
// best effort per subscriber.
func (h *Hub) publish(roomID string, msg *protocol.Message, exclude rooms.ConnID) {
	for id, sub := range h.channels[roomID] {
		if id == exclude {
			continue
		}
		sub.deliver(msg)
	}
}
