package signaling

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/relay"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
	"github.com/BioHazard786/Roomdrop/internal/server"
)

func startRelay(t *testing.T) (wsURL string, api *API) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := relay.NewHub(rooms.NewDirectory())
	go hub.Run(ctx)

	srv := httptest.NewServer(server.New(&config.Server{AllowedOrigin: "*", SendBuffer: 16}, hub).Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", NewAPI(srv.URL + "/api/rooms")
}

func connect(t *testing.T, wsURL string) *Handler {
	t.Helper()
	c := NewClient(wsURL)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(c.Close)
	h := NewHandler(c)
	go h.Start()
	return h
}

func recv[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestHandler_JoinAndSignal(t *testing.T) {
	wsURL, api := startRelay(t)
	ctx := context.Background()

	roomID, err := api.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	alice := connect(t, wsURL)
	if err := alice.Join(roomID, "alice", "Alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if peers := recv(t, alice.Peers, "alice peers"); len(peers) != 0 {
		t.Fatalf("first peers = %+v", peers)
	}
	if got := recv(t, alice.Joined, "alice joined"); got != roomID {
		t.Fatalf("joined %q, want %q", got, roomID)
	}

	bob := connect(t, wsURL)
	if err := bob.Join(roomID, "bob", "Bob"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	peers := recv(t, bob.Peers, "bob peers")
	if len(peers) != 1 || peers[0].ID != "alice" {
		t.Fatalf("bob peers = %+v", peers)
	}
	if p := recv(t, alice.PeerJoined, "peer-joined"); p.ID != "bob" || p.Name != "Bob" {
		t.Fatalf("peer-joined = %+v", p)
	}

	room, err := api.GetRoom(ctx, roomID)
	if err != nil || len(room.Peers) != 2 {
		t.Fatalf("GetRoom = %+v, %v", room, err)
	}

	if err := bob.SendSignal("alice", protocol.Offer("v=0\r\n")); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	sig := recv(t, alice.Signal, "signal")
	if sig.From != "bob" || sig.Negotiation.Kind != protocol.KindOffer || sig.Negotiation.SDP != "v=0\r\n" {
		t.Fatalf("signal = %+v", sig)
	}

	bob.client.Close()
	if p := recv(t, alice.PeerLeft, "peer-left"); p.ID != "bob" {
		t.Fatalf("peer-left = %+v", p)
	}
	select {
	case <-bob.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("bob's handler did not stop")
	}
}

func TestHandler_UnreadPresenceDoesNotBlockSignals(t *testing.T) {
	wsURL, api := startRelay(t)
	roomID, err := api.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	alice := connect(t, wsURL)
	if err := alice.Join(roomID, "alice", ""); err != nil {
		t.Fatalf("Join: %v", err)
	}
	recv(t, alice.Peers, "alice peers")
	recv(t, alice.Joined, "alice joined")

	// Alice never reads PeerJoined from here on.
	var bob *Handler
	for i := 0; i <= cap(alice.PeerJoined); i++ {
		h := connect(t, wsURL)
		id := fmt.Sprintf("peer-%d", i)
		if err := h.Join(roomID, id, ""); err != nil {
			t.Fatalf("Join %s: %v", id, err)
		}
		recv(t, h.Joined, id+" joined")
		bob = h
	}

	if err := bob.SendSignal("alice", protocol.Offer("v=0\r\n")); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	sig := recv(t, alice.Signal, "offer behind unread presence notices")
	if sig.Negotiation.Kind != protocol.KindOffer {
		t.Fatalf("signal = %+v", sig)
	}
	if n := len(alice.PeerJoined); n != cap(alice.PeerJoined) {
		t.Fatalf("queued peer-joined = %d, want %d", n, cap(alice.PeerJoined))
	}
}

func TestHandler_JoinMissingRoom(t *testing.T) {
	wsURL, _ := startRelay(t)
	h := connect(t, wsURL)

	if err := h.Join("no-such-room", "alice", "Alice"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	err := recv(t, h.Error, "error")
	var relayErr *RelayError
	if !errors.As(err, &relayErr) || relayErr.Op != protocol.TypeJoinRoom || relayErr.Message != "Room not found" {
		t.Fatalf("error = %v", err)
	}
}

func TestAPI_GetMissingRoom(t *testing.T) {
	_, api := startRelay(t)
	if _, err := api.GetRoom(context.Background(), "nope"); !errors.Is(err, rooms.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestClient_SendAfterClose(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")
	c.Close()
	c.Close()
	if err := c.Send(&protocol.Message{Type: protocol.TypeJoinRoom}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
