package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	dir := rooms.NewDirectory()
	room, err := dir.CreateRoom()
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return NewHub(dir), room.ID
}

func connect(h *Hub) *Client {
	c := NewClient(h, nil, 32)
	h.handleRegister(c)
	return c
}

func send(t *testing.T, h *Hub, c *Client, msgType string, payload any) {
	t.Helper()
	msg, err := protocol.New(msgType, payload)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.handleInbound(inbound{client: c, msg: *msg})
}

func join(t *testing.T, h *Hub, c *Client, roomID, userID, name string) {
	t.Helper()
	send(t, h, c, protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, UserID: userID, Name: name})
}

// drain returns everything queued for c without blocking.
func drain(c *Client) []*protocol.Message {
	var out []*protocol.Message
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []*protocol.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func expectTypes(t *testing.T, got []*protocol.Message, want ...string) {
	t.Helper()
	if strings.Join(types(got), ",") != strings.Join(want, ",") {
		t.Fatalf("message types = %v, want %v", types(got), want)
	}
}

func TestJoinRoom_NotFound(t *testing.T) {
	h, _ := newTestHub(t)
	c := connect(h)

	join(t, h, c, "no-such-room", "a", "Alice")

	msgs := drain(c)
	expectTypes(t, msgs, protocol.TypeError)
	var e protocol.Error
	if err := msgs[0].Decode(&e); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if e.Op != protocol.TypeJoinRoom || e.Error != "Room not found" {
		t.Fatalf("error = %+v", e)
	}
	if _, ok := h.dir.GetRoom("no-such-room"); ok {
		t.Fatalf("joining a missing room created it")
	}
	if h.dir.Len() != 1 {
		t.Fatalf("room count = %d, want 1", h.dir.Len())
	}
	if c.room != "" || len(h.channels) != 0 {
		t.Fatalf("failed join left a subscription: room=%q channels=%v", c.room, h.channels)
	}
}

func TestJoinRoom_RequiresIDs(t *testing.T) {
	h, roomID := newTestHub(t)
	c := connect(h)

	join(t, h, c, roomID, "", "nobody")

	expectTypes(t, drain(c), protocol.TypeError)
	room, _ := h.dir.GetRoom(roomID)
	if len(room.Peers) != 0 {
		t.Fatalf("peers = %v, want none", room.Peers)
	}
}

func TestJoinRoom_TwoPeers(t *testing.T) {
	h, roomID := newTestHub(t)
	a := connect(h)
	b := connect(h)

	join(t, h, a, roomID, "a", "Alice")
	msgs := drain(a)
	expectTypes(t, msgs, protocol.TypePeers, protocol.TypeJoined)
	if string(msgs[0].Payload) != "[]" {
		t.Fatalf("first joiner peers = %s, want []", msgs[0].Payload)
	}

	join(t, h, b, roomID, "b", "Bob")

	bm := drain(b)
	expectTypes(t, bm, protocol.TypePeers, protocol.TypeJoined)
	var peers []protocol.PeerInfo
	if err := bm[0].Decode(&peers); err != nil {
		t.Fatalf("Decode peers: %v", err)
	}
	if len(peers) != 1 || peers[0] != (protocol.PeerInfo{ID: "a", Name: "Alice"}) {
		t.Fatalf("peers = %+v", peers)
	}
	var ack protocol.Joined
	if err := bm[1].Decode(&ack); err != nil || ack.RoomID != roomID {
		t.Fatalf("joined = %+v, %v", ack, err)
	}

	am := drain(a)
	expectTypes(t, am, protocol.TypePeerJoined)
	var joined protocol.PeerInfo
	if err := am[0].Decode(&joined); err != nil {
		t.Fatalf("Decode peer-joined: %v", err)
	}
	if joined != (protocol.PeerInfo{ID: "b", Name: "Bob"}) {
		t.Fatalf("peer-joined = %+v", joined)
	}

	for _, m := range append(bm, am...) {
		raw, err := protocol.Marshal(m)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		for _, conn := range []rooms.ConnID{a.ID, b.ID} {
			if strings.Contains(string(raw), string(conn)) {
				t.Fatalf("%s leaks a connection handle: %s", m.Type, raw)
			}
		}
	}
}

func TestSignal_Forwarded(t *testing.T) {
	h, roomID := newTestHub(t)
	a := connect(h)
	b := connect(h)
	join(t, h, a, roomID, "a", "Alice")
	join(t, h, b, roomID, "b", "Bob")
	drain(a)
	drain(b)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0\r\na=<x>&y\r\n"}`)
	send(t, h, a, protocol.TypeSignal, protocol.SignalRequest{TargetID: "b", Payload: payload})

	msgs := drain(b)
	expectTypes(t, msgs, protocol.TypeSignal)
	var got protocol.SignalDelivery
	if err := msgs[0].Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.From != "a" {
		t.Fatalf("from = %q, want a", got.From)
	}
	if string(got.Payload) != string(payload) {
		t.Fatalf("payload = %s, want %s", got.Payload, payload)
	}
	if rest := drain(a); len(rest) != 0 {
		t.Fatalf("sender received %v", types(rest))
	}
}

func TestSignal_UnknownTargetDropped(t *testing.T) {
	h, roomID := newTestHub(t)
	a := connect(h)
	b := connect(h)
	join(t, h, a, roomID, "a", "Alice")
	join(t, h, b, roomID, "b", "Bob")
	drain(a)
	drain(b)
	before, _ := h.dir.GetRoom(roomID)

	send(t, h, a, protocol.TypeSignal, protocol.SignalRequest{TargetID: "ghost", Payload: json.RawMessage(`{}`)})

	if got := drain(a); len(got) != 0 {
		t.Fatalf("sender received %v", types(got))
	}
	if got := drain(b); len(got) != 0 {
		t.Fatalf("bystander received %v", types(got))
	}
	after, _ := h.dir.GetRoom(roomID)
	if len(after.Peers) != len(before.Peers) {
		t.Fatalf("directory changed: %v -> %v", before.Peers, after.Peers)
	}
}

func TestSignal_FromFallsBackToConnection(t *testing.T) {
	h, roomID := newTestHub(t)
	a := connect(h)
	b := connect(h)
	join(t, h, b, roomID, "b", "Bob")
	drain(b)

	send(t, h, a, protocol.TypeSignal, protocol.SignalRequest{TargetID: "b", Payload: json.RawMessage(`{"candidate":""}`)})

	msgs := drain(b)
	expectTypes(t, msgs, protocol.TypeSignal)
	var got protocol.SignalDelivery
	if err := msgs[0].Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.From != string(a.ID) {
		t.Fatalf("from = %q, want connection %q", got.From, a.ID)
	}
}

func TestSignal_Malformed(t *testing.T) {
	h, _ := newTestHub(t)
	c := connect(h)

	h.handleInbound(inbound{client: c, msg: protocol.Message{Type: protocol.TypeSignal, Payload: json.RawMessage(`"nope"`)}})
	msgs := drain(c)
	expectTypes(t, msgs, protocol.TypeError)
	var e protocol.Error
	if err := msgs[0].Decode(&e); err != nil || e.Op != protocol.TypeSignal {
		t.Fatalf("error = %+v, %v", e, err)
	}

	h.handleInbound(inbound{client: c, err: protocol.ErrMalformed})
	expectTypes(t, drain(c), protocol.TypeError)
}

func TestUnknownTypeIgnored(t *testing.T) {
	h, _ := newTestHub(t)
	c := connect(h)
	h.handleInbound(inbound{client: c, msg: protocol.Message{Type: "create_room"}})
	if got := drain(c); len(got) != 0 {
		t.Fatalf("unknown type produced %v", types(got))
	}
}

func TestDisconnect_BroadcastsPeerLeft(t *testing.T) {
	h, roomID := newTestHub(t)
	a := connect(h)
	b := connect(h)
	join(t, h, a, roomID, "a", "Alice")
	join(t, h, b, roomID, "b", "Bob")
	drain(a)
	drain(b)

	h.handleUnregister(b)

	msgs := drain(a)
	expectTypes(t, msgs, protocol.TypePeerLeft)
	var left protocol.PeerInfo
	if err := msgs[0].Decode(&left); err != nil || left != (protocol.PeerInfo{ID: "b", Name: "Bob"}) {
		t.Fatalf("peer-left = %+v, %v", left, err)
	}
	if _, ok := <-b.send; ok {
		t.Fatalf("send channel still open after unregister")
	}
	room, _ := h.dir.GetRoom(roomID)
	if len(room.Peers) != 1 || room.Peers[0].ID != "a" {
		t.Fatalf("peers = %v", room.Peers)
	}

	// A second disconnect for the same connection is a no-op.
	h.handleUnregister(b)
	if got := drain(a); len(got) != 0 {
		t.Fatalf("repeat disconnect produced %v", types(got))
	}
}

func TestDisconnect_NeverJoined(t *testing.T) {
	h, roomID := newTestHub(t)
	a := connect(h)
	join(t, h, a, roomID, "a", "Alice")
	drain(a)

	idle := connect(h)
	h.handleUnregister(idle)

	if got := drain(a); len(got) != 0 {
		t.Fatalf("idle disconnect produced %v", types(got))
	}
}

func TestRejoin_SupersedesOldConnection(t *testing.T) {
	h, roomID := newTestHub(t)
	old := connect(h)
	fresh := connect(h)
	watcher := connect(h)
	join(t, h, watcher, roomID, "w", "Watcher")
	join(t, h, old, roomID, "a", "Alice")
	drain(old)
	drain(watcher)

	join(t, h, fresh, roomID, "a", "Alice again")

	room, _ := h.dir.GetRoom(roomID)
	if len(room.Peers) != 2 {
		t.Fatalf("peers = %v, want 2 records", room.Peers)
	}
	if got, _ := h.dir.FindConnectionByPeerID("a"); got != fresh.ID {
		t.Fatalf("peer a owned by %q, want %q", got, fresh.ID)
	}
	if old.room != "" {
		t.Fatalf("superseded connection still subscribed to %q", old.room)
	}
	expectTypes(t, drain(watcher), protocol.TypePeerJoined)

	// The stale connection closing must not announce the live peer as gone.
	h.handleUnregister(old)
	if got := drain(watcher); len(got) != 0 {
		t.Fatalf("stale disconnect produced %v", types(got))
	}
}

func TestJoin_MovingRoomsLeavesOldRoom(t *testing.T) {
	h, first := newTestHub(t)
	second, err := h.dir.CreateRoom()
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	a := connect(h)
	b := connect(h)
	join(t, h, a, first, "a", "Alice")
	join(t, h, b, first, "b", "Bob")
	drain(a)
	drain(b)

	join(t, h, a, second.ID, "a", "Alice")

	expectTypes(t, drain(b), protocol.TypePeerLeft)
	expectTypes(t, drain(a), protocol.TypePeers, protocol.TypeJoined)
	if a.room != second.ID {
		t.Fatalf("subscribed to %q, want %q", a.room, second.ID)
	}
	r, _ := h.dir.GetRoom(first)
	if len(r.Peers) != 1 || r.Peers[0].ID != "b" {
		t.Fatalf("old room peers = %v", r.Peers)
	}
}

func TestDeliver_FullBufferDrops(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, 1)

	if !c.deliver(&protocol.Message{Type: "one"}) {
		t.Fatalf("first deliver should fit")
	}
	if c.deliver(&protocol.Message{Type: "two"}) {
		t.Fatalf("second deliver should be dropped")
	}
	expectTypes(t, drain(c), "one")
}

func TestRun_StopClosesClients(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := NewClient(h, nil, 4)
	if !h.Register(c) {
		t.Fatalf("Register on a running hub failed")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Fatalf("send channel still open after stop")
	}
	if h.Register(NewClient(h, nil, 1)) {
		t.Fatalf("Register after stop should fail")
	}
	if h.dispatch(inbound{client: c}) {
		t.Fatalf("dispatch after stop should fail")
	}
	h.unregister(c)
}

func TestProtocolErrorIsMalformed(t *testing.T) {
	m := &protocol.Message{Type: protocol.TypeJoinRoom, Payload: json.RawMessage(`[`)}
	var jr protocol.JoinRoom
	if err := m.Decode(&jr); !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("err = %v", err)
	}
}
