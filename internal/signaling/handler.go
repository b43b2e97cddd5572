package signaling

import (
	"fmt"
	"log/slog"

	"github.com/BioHazard786/Roomdrop/internal/protocol"
)

// Signal is a negotiation payload received from another peer.
type Signal struct {
	From        string
	Negotiation protocol.Negotiation
}

// RelayError is an error reply from the relay.
type RelayError struct {
	Op      string
	Message string
}

func (e *RelayError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("relay: %s: %s", e.Op, e.Message)
	}
	return "relay: " + e.Message
}

// Handler routes incoming relay messages to typed channels. Presence
// notices are dropped when nobody is reading them, so they never hold up
// signals behind them.
type Handler struct {
	client *Client

	Peers      chan []protocol.PeerInfo
	Joined     chan string
	PeerJoined chan protocol.PeerInfo
	PeerLeft   chan protocol.PeerInfo
	Signal     chan Signal
	Error      chan error

	done chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Peers:      make(chan []protocol.PeerInfo, 1),
		Joined:     make(chan string, 1),
		PeerJoined: make(chan protocol.PeerInfo, 8),
		PeerLeft:   make(chan protocol.PeerInfo, 8),
		Signal:     make(chan Signal, 64),
		Error:      make(chan error, 4),
		done:       make(chan struct{}),
	}
}

// Start routes messages until the connection ends, then closes Done.
func (h *Handler) Start() {
	defer close(h.done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case protocol.TypePeers:
			var peers []protocol.PeerInfo
			if h.decode(msg, &peers) {
				emit(h, h.Peers, peers)
			}

		case protocol.TypeJoined:
			var joined protocol.Joined
			if h.decode(msg, &joined) {
				emit(h, h.Joined, joined.RoomID)
			}

		case protocol.TypePeerJoined:
			var p protocol.PeerInfo
			if h.decode(msg, &p) {
				notify(h.PeerJoined, p, msg.Type)
			}

		case protocol.TypePeerLeft:
			var p protocol.PeerInfo
			if h.decode(msg, &p) {
				notify(h.PeerLeft, p, msg.Type)
			}

		case protocol.TypeSignal:
			h.handleSignal(msg)

		case protocol.TypeError:
			var e protocol.Error
			if !h.decode(msg, &e) {
				e.Error = "unknown error from relay"
			}
			emit[error](h, h.Error, &RelayError{Op: e.Op, Message: e.Error})

		default:
			slog.Debug("ignoring relay message", "type", msg.Type)
		}
	}
}

// Done is closed once the relay connection has ended.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Join asks the relay to place this connection in roomID as userID.
func (h *Handler) Join(roomID, userID, name string) error {
	msg, err := protocol.New(protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, UserID: userID, Name: name})
	if err != nil {
		return err
	}
	return h.client.Send(msg)
}

// SendSignal forwards n to the peer with id target.
func (h *Handler) SendSignal(target string, n protocol.Negotiation) error {
	payload, err := protocol.Marshal(n)
	if err != nil {
		return err
	}
	msg, err := protocol.New(protocol.TypeSignal, protocol.SignalRequest{TargetID: target, Payload: payload})
	if err != nil {
		return err
	}
	return h.client.Send(msg)
}

// handleSignal classifies the payload. Payloads that are not a session
// description or candidate are dropped.
func (h *Handler) handleSignal(msg *protocol.Message) {
	var d protocol.SignalDelivery
	if !h.decode(msg, &d) {
		return
	}
	n, err := protocol.ParseNegotiation(d.Payload)
	if err != nil {
		slog.Debug("dropping signal", "from", d.From, "err", err)
		return
	}
	emit(h, h.Signal, Signal{From: d.From, Negotiation: n})
}

func (h *Handler) decode(msg *protocol.Message, v any) bool {
	if err := msg.Decode(v); err != nil {
		slog.Debug("bad relay message", "type", msg.Type, "err", err)
		return false
	}
	return true
}

// emit delivers v on ch unless the client is shutting down.
func emit[T any](h *Handler, ch chan T, v T) {
	select {
	case ch <- v:
	case <-h.client.done:
	}
}

// notify delivers a presence notice if there is room for it.
func notify(ch chan protocol.PeerInfo, p protocol.PeerInfo, kind string) {
	select {
	case ch <- p:
	default:
		slog.Debug("dropping presence notice", "type", kind, "peer", p.ID)
	}
}
