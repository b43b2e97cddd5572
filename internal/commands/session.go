package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/peer"
	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/signaling"
	"github.com/BioHazard786/Roomdrop/internal/transfer"
	"github.com/BioHazard786/Roomdrop/internal/ui"
)

// openTimeout bounds how long ICE and the channel handshake may take.
const openTimeout = 45 * time.Second

// connection is one CLI presence in a room.
type connection struct {
	cfg     *config.Config
	client  *signaling.Client
	handler *signaling.Handler
	userID  string
}

func connect(ctx context.Context, cfg *config.Config) (*connection, error) {
	sp := ui.NewConnectionSpinner("Connecting to server...")
	sp.Start()

	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(ctx); err != nil {
		sp.Fail("Could not reach " + cfg.ServerURL)
		return nil, transfer.NewError("connect to server", err)
	}
	sp.Success("Connected to " + cfg.ServerURL)

	handler := signaling.NewHandler(client)
	go handler.Start()

	return &connection{
		cfg:     cfg,
		client:  client,
		handler: handler,
		userID:  uuid.NewString(),
	}, nil
}

func (c *connection) Close() {
	c.client.Close()
}

// join enters roomID and returns the peers already there.
func (c *connection) join(ctx context.Context, roomID, name string) ([]protocol.PeerInfo, error) {
	if err := c.handler.Join(roomID, c.userID, name); err != nil {
		return nil, transfer.NewError("join room", err)
	}

	var peers []protocol.PeerInfo
	for {
		select {
		case peers = <-c.handler.Peers:
		case <-c.handler.Joined:
			// peers is always sent before joined.
			select {
			case peers = <-c.handler.Peers:
			default:
			}
			return peers, nil
		case err := <-c.handler.Error:
			return nil, transfer.WrapError("join room", err, roomID)
		case <-c.handler.Done():
			return nil, transfer.NewError("join room", signaling.ErrClosed)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// newSession creates a peer connection whose negotiation goes to target.
func (c *connection) newSession(target string) (*peer.Session, error) {
	sess, err := peer.NewSession(peer.Configuration(c.cfg), func(n protocol.Negotiation) error {
		return c.handler.SendSignal(target, n)
	})
	if err != nil {
		return nil, transfer.NewError("create peer connection", err)
	}
	return sess, nil
}

// routeSignals applies negotiation from target to sess until ctx ends or
// the relay connection closes. Signals from anyone else are ignored.
func (c *connection) routeSignals(ctx context.Context, sess *peer.Session, target string) {
	for {
		select {
		case s := <-c.handler.Signal:
			if s.From != target {
				slog.Debug("ignoring signal from another peer", "from", s.From)
				continue
			}
			if err := sess.HandleSignal(s.Negotiation); err != nil {
				slog.Warn("failed to apply signal", "kind", s.Negotiation.Kind.String(), "err", err)
			}
		case err := <-c.handler.Error:
			slog.Debug("relay error", "err", err)
		case <-c.handler.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// openChannel waits for ch to open, giving up early if the connection
// fails.
func openChannel(ctx context.Context, sess *peer.Session, ch *peer.Channel) error {
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	go func() {
		select {
		case <-sess.Failed():
			cancel()
		case <-ctx.Done():
		}
	}()

	stop := ui.RunConnectionSpinner("Establishing direct connection...")
	defer stop()

	if err := ch.Open(ctx); err != nil {
		select {
		case <-sess.Failed():
			return transfer.NewError("open channel", peer.ErrConnectionFailed)
		default:
		}
		return transfer.NewError("open channel", err)
	}
	return nil
}
