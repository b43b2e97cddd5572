package rooms

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrIDSpaceExhausted = errors.New("could not allocate a unique room id")
)

// How many candidate ids CreateRoom draws before giving up.
const defaultIDAttempts = 32

// Directory is the in-memory registry of rooms and their peers.
//
// It does no I/O and never broadcasts; callers compose it with transport
// actions. Every method runs under one mutex, so find-then-mutate sequences
// are atomic. Rooms live until the process exits.
type Directory struct {
	mu         sync.Mutex
	rooms      map[string]*room
	newID      IDGenerator
	idAttempts int
}

// NewDirectory creates an empty directory that names rooms with WordID.
func NewDirectory() *Directory {
	return NewDirectoryWithGenerator(WordID)
}

// NewDirectoryWithGenerator creates an empty directory using gen for room ids.
func NewDirectoryWithGenerator(gen IDGenerator) *Directory {
	return &Directory{
		rooms:      make(map[string]*room),
		newID:      gen,
		idAttempts: defaultIDAttempts,
	}
}

// CreateRoom allocates a room with a fresh id. Colliding candidates are
// redrawn, never overwritten.
func (d *Directory) CreateRoom() (Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := 0; i < d.idAttempts; i++ {
		id, err := d.newID()
		if err != nil {
			return Room{}, fmt.Errorf("generate room id: %w", err)
		}
		if id == "" {
			continue
		}
		if _, taken := d.rooms[id]; taken {
			continue
		}

		r := &room{id: id}
		d.rooms[id] = r
		return r.snapshot(), nil
	}

	return Room{}, ErrIDSpaceExhausted
}

// GetRoom returns a snapshot of the room.
func (d *Directory) GetRoom(id string) (Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[id]
	if !ok {
		return Room{}, false
	}
	return r.snapshot(), true
}

// AddPeer upserts p into the room by peer id. A record with the same id is
// replaced in place; otherwise p is appended. Unknown rooms yield
// ErrRoomNotFound and are not created.
//
// Any other record already owned by p.Conn is removed first and reported in
// Change.Evicted.
func (d *Directory) AddPeer(roomID string, p Peer) (Room, Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	target, ok := d.rooms[roomID]
	if !ok {
		return Room{}, Change{}, ErrRoomNotFound
	}

	var change Change
	for id, r := range d.rooms {
		r.peers = slices.DeleteFunc(r.peers, func(q Peer) bool {
			if q.Conn != p.Conn || (r == target && q.ID == p.ID) {
				return false
			}
			change.Evicted = append(change.Evicted, Placement{RoomID: id, Peer: q})
			return true
		})
	}

	if i := target.indexOf(p.ID); i >= 0 {
		if prev := target.peers[i]; prev.Conn != p.Conn {
			change.Superseded = &prev
		}
		target.peers[i] = p
	} else {
		target.peers = append(target.peers, p)
	}

	return target.snapshot(), change, nil
}

// RemovePeerByConnection removes the peer owned by conn and reports the room
// it was in. A second call for the same conn finds nothing.
func (d *Directory) RemovePeerByConnection(conn ConnID) (string, Peer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, r := range d.rooms {
		if i := r.indexOfConn(conn); i >= 0 {
			p := r.peers[i]
			r.peers = slices.Delete(r.peers, i, i+1)
			return id, p, true
		}
	}
	return "", Peer{}, false
}

// FindConnectionByPeerID resolves a peer id to its connection. Ids are only
// unique per room, so with duplicates across rooms any one of them may match.
func (d *Directory) FindConnectionByPeerID(peerID string) (ConnID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.rooms {
		if i := r.indexOf(peerID); i >= 0 {
			return r.peers[i].Conn, true
		}
	}
	return "", false
}

// FindPeerByConnection returns the peer record owned by conn.
func (d *Directory) FindPeerByConnection(conn ConnID) (Peer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.rooms {
		if i := r.indexOfConn(conn); i >= 0 {
			return r.peers[i], true
		}
	}
	return Peer{}, false
}

// Len reports the number of live rooms.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
