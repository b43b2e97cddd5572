package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks input whose shape could not be understood.
var ErrMalformed = errors.New("malformed payload")

// NegotiationKind tags a negotiation payload.
type NegotiationKind int

const (
	KindOffer NegotiationKind = iota + 1
	KindAnswer
	KindCandidate
)

func (k NegotiationKind) String() string {
	switch k {
	case KindOffer:
		return "offer"
	case KindAnswer:
		return "answer"
	case KindCandidate:
		return "candidate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Candidate mirrors the browser's RTCIceCandidateInit JSON.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// Negotiation is a signal payload classified at the client boundary. The
// relay forwards payloads without parsing them.
type Negotiation struct {
	Kind      NegotiationKind
	SDP       string
	Candidate Candidate
}

// Offer wraps an SDP offer.
func Offer(sdp string) Negotiation {
	return Negotiation{Kind: KindOffer, SDP: sdp}
}

// Answer wraps an SDP answer.
func Answer(sdp string) Negotiation {
	return Negotiation{Kind: KindAnswer, SDP: sdp}
}

// NewCandidate wraps a trickled ICE candidate.
func NewCandidate(c Candidate) Negotiation {
	return Negotiation{Kind: KindCandidate, Candidate: c}
}

type sessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// MarshalJSON emits the shape a browser peer expects: a session description
// for offers and answers, a bare candidate object otherwise.
func (n Negotiation) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindOffer, KindAnswer:
		return json.Marshal(sessionDescription{Type: n.Kind.String(), SDP: n.SDP})
	case KindCandidate:
		return json.Marshal(n.Candidate)
	default:
		return nil, fmt.Errorf("%w: unknown negotiation kind %v", ErrMalformed, n.Kind)
	}
}

// ParseNegotiation classifies an opaque signal payload.
func ParseNegotiation(raw json.RawMessage) (Negotiation, error) {
	var shape struct {
		Type             *string `json:"type"`
		SDP              *string `json:"sdp"`
		Candidate        *string `json:"candidate"`
		SDPMid           *string `json:"sdpMid"`
		SDPMLineIndex    *uint16 `json:"sdpMLineIndex"`
		UsernameFragment *string `json:"usernameFragment"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Negotiation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case shape.Type != nil:
		if shape.SDP == nil || *shape.SDP == "" {
			return Negotiation{}, fmt.Errorf("%w: %s without sdp", ErrMalformed, *shape.Type)
		}
		switch *shape.Type {
		case "offer":
			return Offer(*shape.SDP), nil
		case "answer":
			return Answer(*shape.SDP), nil
		default:
			return Negotiation{}, fmt.Errorf("%w: unsupported description type %q", ErrMalformed, *shape.Type)
		}

	case shape.Candidate != nil:
		return NewCandidate(Candidate{
			Candidate:        *shape.Candidate,
			SDPMid:           shape.SDPMid,
			SDPMLineIndex:    shape.SDPMLineIndex,
			UsernameFragment: shape.UsernameFragment,
		}), nil

	default:
		return Negotiation{}, fmt.Errorf("%w: neither a session description nor a candidate", ErrMalformed)
	}
}
