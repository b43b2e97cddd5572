package rooms

// ConnID identifies one live relay connection. It is the ownership anchor
// for a peer record and is never sent to other clients.
type ConnID string

// Peer is one participant bound to exactly one live connection.
type Peer struct {
	// ID is supplied by the client and is the routing key for signals.
	ID string

	// Name is a display label. Not unique, not validated.
	Name string

	// Conn is the connection that owns this record.
	Conn ConnID `json:"-"`
}

// PublicPeer is the only peer shape that leaves the relay.
type PublicPeer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Public strips the connection handle.
func (p Peer) Public() PublicPeer {
	return PublicPeer{ID: p.ID, Name: p.Name}
}

// Room is a point-in-time copy of a room's membership.
type Room struct {
	ID    string
	Peers []Peer
}

// PublicRoom is the REST shape of a room.
type PublicRoom struct {
	ID    string       `json:"id"`
	Peers []PublicPeer `json:"peers"`
}

// Public returns the room with connection handles removed.
func (r Room) Public() PublicRoom {
	return PublicRoom{ID: r.ID, Peers: r.PublicPeers("")}
}

// PublicPeers lists members in join order, skipping the peer owned by
// exclude. Pass an empty ConnID to list everyone.
func (r Room) PublicPeers(exclude ConnID) []PublicPeer {
	out := make([]PublicPeer, 0, len(r.Peers))
	for _, p := range r.Peers {
		if exclude != "" && p.Conn == exclude {
			continue
		}
		out = append(out, p.Public())
	}
	return out
}

// Placement records where a removed peer used to live.
type Placement struct {
	RoomID string
	Peer   Peer
}

// Change describes side effects of AddPeer beyond the upsert itself.
type Change struct {
	// Superseded is the previous record for the same peer id when it was
	// owned by a different connection.
	Superseded *Peer

	// Evicted lists other records the joining connection owned. A
	// connection owns at most one peer record across all rooms.
	Evicted []Placement
}

// room is the directory's private, mutable form.
type room struct {
	id    string
	peers []Peer
}

func (r *room) indexOf(peerID string) int {
	for i, p := range r.peers {
		if p.ID == peerID {
			return i
		}
	}
	return -1
}

func (r *room) indexOfConn(conn ConnID) int {
	for i, p := range r.peers {
		if p.Conn == conn {
			return i
		}
	}
	return -1
}

func (r *room) snapshot() Room {
	peers := make([]Peer, len(r.peers))
	copy(peers, r.peers)
	return Room{ID: r.id, Peers: peers}
}
