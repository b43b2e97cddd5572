// Package peer runs the direct channel between two CLI peers on pion/webrtc.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/utils"
)

// ChannelLabel names the single data channel a transfer runs on.
const ChannelLabel = "file"

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrUnexpectedSignal = errors.New("unexpected signal")
)

// Configuration builds pion's configuration from CLI settings. Relay-only
// ICE is used when forced, or when a TURN server is configured and the host
// looks like it sits behind a VPN or CGNAT.
func Configuration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// Signal sends a negotiation payload to the remote peer through the relay.
type Signal func(n protocol.Negotiation) error

// Session wraps one peer connection and its trickle-ICE negotiation.
// Remote candidates that arrive before the remote description are held and
// applied once it is set.
type Session struct {
	pc     *pion.PeerConnection
	signal Signal
	log    *slog.Logger

	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit

	channels chan *Channel
	failed   chan struct{}
	failOnce sync.Once
}

// NewSession creates a peer connection from cfg on an API that logs
// through slog.
func NewSession(cfg pion.Configuration, signal Signal) (*Session, error) {
	return NewSessionWithAPI(NewAPI(), cfg, signal)
}

// NewSessionWithAPI is NewSession for a caller-supplied pion API.
func NewSessionWithAPI(api *pion.API, cfg pion.Configuration, signal Signal) (*Session, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return newSession(pc, signal), nil
}

func newSession(pc *pion.PeerConnection, signal Signal) *Session {
	s := &Session{
		pc:       pc,
		signal:   signal,
		log:      slog.With("component", "peer"),
		channels: make(chan *Channel, 1),
		failed:   make(chan struct{}),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		err := s.signal(protocol.NewCandidate(protocol.Candidate{
			Candidate:        init.Candidate,
			SDPMid:           init.SDPMid,
			SDPMLineIndex:    init.SDPMLineIndex,
			UsernameFragment: init.UsernameFragment,
		}))
		if err != nil {
			s.log.Debug("failed to send candidate", "err", err)
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.log.Debug("connection state", "state", state.String())
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			s.failOnce.Do(func() { close(s.failed) })
		}
	})

	// Wrapping here installs the message handler before pion starts reading.
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		select {
		case s.channels <- NewChannel(dc):
		default:
			s.log.Debug("ignoring extra data channel", "label", dc.Label())
		}
	})

	return s
}

// Call opens the transfer channel and sends an offer. It is used by the
// sending side.
func (s *Session) Call() (*pion.DataChannel, error) {
	ordered := true
	dc, err := s.pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	if err := s.signal(protocol.Offer(offer.SDP)); err != nil {
		return nil, fmt.Errorf("send offer: %w", err)
	}
	return dc, nil
}

// HandleSignal applies a negotiation payload from the remote peer. An offer
// is answered immediately.
func (s *Session) HandleSignal(n protocol.Negotiation) error {
	switch n.Kind {
	case protocol.KindOffer:
		if err := s.setRemote(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: n.SDP}); err != nil {
			return err
		}
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}
		return s.signal(protocol.Answer(answer.SDP))

	case protocol.KindAnswer:
		return s.setRemote(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: n.SDP})

	case protocol.KindCandidate:
		if n.Candidate.Candidate == "" {
			return nil
		}
		init := pion.ICECandidateInit{
			Candidate:        n.Candidate.Candidate,
			SDPMid:           n.Candidate.SDPMid,
			SDPMLineIndex:    n.Candidate.SDPMLineIndex,
			UsernameFragment: n.Candidate.UsernameFragment,
		}

		s.mu.Lock()
		if !s.remoteSet {
			s.pending = append(s.pending, init)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		if err := s.pc.AddICECandidate(init); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %v", ErrUnexpectedSignal, n.Kind)
	}
}

func (s *Session) setRemote(desc pion.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, c := range pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			s.log.Debug("failed to add buffered candidate", "err", err)
		}
	}
	return nil
}

// Accept waits for the remote peer's data channel. It is used by the
// receiving side.
func (s *Session) Accept(ctx context.Context) (*Channel, error) {
	select {
	case dc := <-s.channels:
		return dc, nil
	case <-s.failed:
		return nil, ErrConnectionFailed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Failed is closed when the connection fails or is closed.
func (s *Session) Failed() <-chan struct{} {
	return s.failed
}

// Close tears down the peer connection.
func (s *Session) Close() error {
	return s.pc.Close()
}
