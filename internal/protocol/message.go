// Package protocol defines the relay's websocket message contract, shared by
// the relay server and the CLI's relay client.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

// Message is the envelope for every websocket text frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to relay.
const (
	TypeJoinRoom = "join-room"
	TypeSignal   = "signal"
)

// Relay to client. TypeSignal is used in both directions.
const (
	TypePeers      = "peers"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeJoined     = "joined"
	TypeError      = "error"
)

// JoinRoom asks the relay to bind the connection to a room as a peer.
type JoinRoom struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Joined acknowledges a successful join.
type Joined struct {
	RoomID string `json:"roomId"`
}

// SignalRequest is a client's request to forward Payload to TargetID.
type SignalRequest struct {
	TargetID string          `json:"targetId"`
	Payload  json.RawMessage `json:"payload"`
}

// SignalDelivery is what the target receives.
type SignalDelivery struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// Error reports a failed operation to the requesting connection only.
type Error struct {
	Op    string `json:"op,omitempty"`
	Error string `json:"error"`
}

// PeerInfo is the public peer shape used in peers, peer-joined and peer-left.
type PeerInfo = rooms.PublicPeer

// New builds a message with payload encoded as JSON. HTML characters are
// left unescaped so forwarded payloads keep their bytes.
func New(msgType string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: msgType}, nil
	}
	b, err := Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{Type: msgType, Payload: b}, nil
}

// Marshal is json.Marshal without HTML escaping.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MustNew is New for payload types that always encode.
func MustNew(msgType string, payload any) *Message {
	m, err := New(msgType, payload)
	if err != nil {
		panic(err)
	}
	return m
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: %w: empty payload", m.Type, ErrMalformed)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: %w: %v", m.Type, ErrMalformed, err)
	}
	return nil
}
