package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/peer"
	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/relay"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
	"github.com/BioHazard786/Roomdrop/internal/server"
	"github.com/BioHazard786/Roomdrop/internal/signaling"
	"github.com/BioHazard786/Roomdrop/internal/transfer"
)

func startRelay(t *testing.T) (*config.Config, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := relay.NewHub(rooms.NewDirectory())
	go hub.Run(ctx)

	srv := httptest.NewServer(server.New(&config.Server{AllowedOrigin: "*", SendBuffer: 64}, hub).Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	cfg, err := config.Load(config.Options{Server: srv.URL, Framing: "text"})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	// Host candidates only.
	cfg.STUNServer = ""
	cfg.TURNServer = ""

	id, err := signaling.NewAPI(cfg.RoomsURL()).CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return cfg, id
}

func mustConnect(t *testing.T, cfg *config.Config) *connection {
	t.Helper()
	c, err := connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestJoin_MissingRoom(t *testing.T) {
	cfg, _ := startRelay(t)
	c := mustConnect(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.join(ctx, "no-such-room", "")
	var relayErr *signaling.RelayError
	if !errors.As(err, &relayErr) || relayErr.Message != "Room not found" {
		t.Fatalf("err = %v, want relay room-not-found error", err)
	}
}

func TestPickTarget(t *testing.T) {
	cfg, roomID := startRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice := mustConnect(t, cfg)
	peers, err := alice.join(ctx, roomID, "alice")
	if err != nil {
		t.Fatalf("alice join: %v", err)
	}
	if len(peers) != 0 {
		t.Fatalf("alice saw %d peers in a new room", len(peers))
	}

	bob := mustConnect(t, cfg)
	peers, err = bob.join(ctx, roomID, "bob")
	if err != nil {
		t.Fatalf("bob join: %v", err)
	}
	if len(peers) != 1 || peers[0].ID != alice.userID {
		t.Fatalf("bob saw %+v", peers)
	}

	// Already listed.
	got, err := pickTarget(ctx, bob, peers, "")
	if err != nil || got.ID != alice.userID {
		t.Fatalf("bob picked %+v, %v", got, err)
	}

	// Alice had nobody listed and waits for the join.
	got, err = pickTarget(ctx, alice, nil, "")
	if err != nil || got.ID != bob.userID || got.Name != "bob" {
		t.Fatalf("alice picked %+v, %v", got, err)
	}

	short, stop := context.WithTimeout(ctx, 200*time.Millisecond)
	defer stop()
	if _, err := pickTarget(short, bob, peers, "someone-else"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("explicit missing target: err = %v", err)
	}
}

func TestTransferThroughRoom(t *testing.T) {
	cfg, roomID := startRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	receiver := mustConnect(t, cfg)
	if _, err := receiver.join(ctx, roomID, ""); err != nil {
		t.Fatalf("receiver join: %v", err)
	}
	sender := mustConnect(t, cfg)
	peers, err := sender.join(ctx, roomID, "")
	if err != nil {
		t.Fatalf("sender join: %v", err)
	}
	target, err := pickTarget(ctx, sender, peers, "")
	if err != nil {
		t.Fatalf("pickTarget: %v", err)
	}

	files := make(chan transfer.File, 1)
	errs := make(chan error, 4)
	answered := make(chan *peer.Session, 1)
	defer func() {
		select {
		case s := <-answered:
			s.Close()
		default:
		}
	}()

	go func() {
		offer, early, err := waitForOffer(ctx, receiver)
		if err != nil {
			errs <- err
			return
		}
		if offer.From != sender.userID {
			errs <- errors.New("offer from unexpected peer " + offer.From)
			return
		}
		sess, err := receiver.newSession(offer.From)
		if err != nil {
			errs <- err
			return
		}
		answered <- sess
		if err := sess.HandleSignal(offer.Negotiation); err != nil {
			errs <- err
			return
		}
		for _, s := range early {
			sess.HandleSignal(s.Negotiation)
		}
		go receiver.routeSignals(ctx, sess, offer.From)

		ch, err := sess.Accept(ctx)
		if err != nil {
			errs <- err
			return
		}
		ch.Attach(transfer.NewMemoryReceiver(transfer.TextCodec{}, func(f transfer.File) { files <- f }), func(err error) {
			errs <- err
		})
	}()

	sess, err := sender.newSession(target.ID)
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	defer sess.Close()
	go sender.routeSignals(ctx, sess, target.ID)

	dc, err := sess.Call()
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	ch := peer.NewChannel(dc)
	if err := openChannel(ctx, sess, ch); err != nil {
		t.Fatalf("openChannel: %v", err)
	}

	data := bytes.Repeat([]byte{0xAB, 0xCD}, 3*transfer.ChunkSize)
	if err := transfer.NewSender(ch, transfer.TextCodec{}).SendFile(ctx, "blob.bin", int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatalf("SendFile: %v", err)
	}

	select {
	case f := <-files:
		if f.Name != "blob.bin" || !bytes.Equal(f.Data, data) {
			t.Fatalf("received %q with %d bytes", f.Name, len(f.Data))
		}
	case err := <-errs:
		t.Fatalf("receiver: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for the file")
	}
}

func TestDescribePeer(t *testing.T) {
	if got := describePeer(protocol.PeerInfo{ID: "u-1", Name: "alice"}); !strings.Contains(got, "alice") || !strings.Contains(got, "u-1") {
		t.Fatalf("describePeer = %q", got)
	}
	if got := describePeer(protocol.PeerInfo{ID: "u-2"}); !strings.Contains(got, "u-2") {
		t.Fatalf("describePeer = %q", got)
	}
}
