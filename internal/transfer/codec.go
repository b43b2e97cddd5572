package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// ChunkSize is the fixed payload size of every chunk but the last.
const ChunkSize = 16 * 1024

// DefaultName replaces an empty file name in Meta.
const DefaultName = "received.bin"

// Text framing literals shared with the browser client.
const (
	metaPrefix = "FILE_META:"
	endMarker  = "FILE_END"
)

// Message is one data-channel message. Control frames of the text codec
// travel as strings and chunks as binary; the distinction is the channel's
// message type, never the content.
type Message struct {
	Data     []byte
	IsString bool
}

// Channel is the outbound half of an open direct channel. Send must not
// retain msg.Data after it returns.
type Channel interface {
	Send(msg Message) error
	IsOpen() bool
}

// FrameKind tags a Frame.
type FrameKind uint8

const (
	FrameMeta FrameKind = iota + 1
	FrameChunk
	FrameEnd
)

func (k FrameKind) String() string {
	switch k {
	case FrameMeta:
		return "meta"
	case FrameChunk:
		return "chunk"
	case FrameEnd:
		return "end"
	default:
		return fmt.Sprintf("frame(%d)", uint8(k))
	}
}

// Meta announces the file that follows.
type Meta struct {
	Name string `json:"name" msgpack:"name"`
	Size int64  `json:"size" msgpack:"size"`
}

// Frame is one step of the Meta, Chunk*, End sequence.
type Frame struct {
	Kind FrameKind
	Meta Meta
	Data []byte
}

// Codec maps frames to channel messages and back.
type Codec interface {
	Name() string
	Encode(f Frame) (Message, error)
	Decode(m Message) (Frame, error)
}

// CodecByName returns the codec registered under name. An empty name
// selects the text codec.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return TextCodec{}, nil
	case "msgpack":
		return EnvelopeCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown framing %q", name)
	}
}

// validateMeta checks a decoded meta record. size is nil when the field was
// absent.
func validateMeta(name string, size *int64) (Meta, error) {
	if size == nil {
		return Meta{}, fmt.Errorf("%w: meta without size", ErrMalformed)
	}
	if *size < 0 {
		return Meta{}, fmt.Errorf("%w: negative size %d", ErrMalformed, *size)
	}
	if name == "" {
		name = DefaultName
	}
	return Meta{Name: name, Size: *size}, nil
}

// TextCodec is the browser-compatible framing: FILE_META:<json> and
// FILE_END as strings, raw binary chunks.
type TextCodec struct{}

func (TextCodec) Name() string { return "text" }

func (TextCodec) Encode(f Frame) (Message, error) {
	switch f.Kind {
	case FrameMeta:
		b, err := json.Marshal(f.Meta)
		if err != nil {
			return Message{}, err
		}
		return Message{Data: append([]byte(metaPrefix), b...), IsString: true}, nil
	case FrameChunk:
		return Message{Data: f.Data}, nil
	case FrameEnd:
		return Message{Data: []byte(endMarker), IsString: true}, nil
	default:
		return Message{}, fmt.Errorf("%w: cannot encode %v", ErrMalformed, f.Kind)
	}
}

func (TextCodec) Decode(m Message) (Frame, error) {
	if !m.IsString {
		return Frame{Kind: FrameChunk, Data: m.Data}, nil
	}

	switch {
	case string(m.Data) == endMarker:
		return Frame{Kind: FrameEnd}, nil
	case bytes.HasPrefix(m.Data, []byte(metaPrefix)):
		var raw struct {
			Name string `json:"name"`
			Size *int64 `json:"size"`
		}
		if err := json.Unmarshal(m.Data[len(metaPrefix):], &raw); err != nil {
			return Frame{}, fmt.Errorf("%w: meta: %v", ErrMalformed, err)
		}
		meta, err := validateMeta(raw.Name, raw.Size)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Kind: FrameMeta, Meta: meta}, nil
	default:
		return Frame{}, fmt.Errorf("%w: unknown control message", ErrMalformed)
	}
}

// envelope is the msgpack wire form of a frame.
type envelope struct {
	Kind FrameKind `msgpack:"k"`
	Name string    `msgpack:"n,omitempty"`
	Size *int64    `msgpack:"s,omitempty"`
	Data []byte    `msgpack:"d,omitempty"`
}

// EnvelopeCodec carries every frame as a binary msgpack envelope with an
// explicit kind tag.
type EnvelopeCodec struct{}

func (EnvelopeCodec) Name() string { return "msgpack" }

func (EnvelopeCodec) Encode(f Frame) (Message, error) {
	env := envelope{Kind: f.Kind}
	switch f.Kind {
	case FrameMeta:
		size := f.Meta.Size
		env.Name, env.Size = f.Meta.Name, &size
	case FrameChunk:
		env.Data = f.Data
	case FrameEnd:
	default:
		return Message{}, fmt.Errorf("%w: cannot encode %v", ErrMalformed, f.Kind)
	}

	b, err := msgpack.Marshal(&env)
	if err != nil {
		return Message{}, NewError("marshal envelope", err)
	}
	return Message{Data: b}, nil
}

func (EnvelopeCodec) Decode(m Message) (Frame, error) {
	if m.IsString {
		return Frame{}, fmt.Errorf("%w: string message on a msgpack channel", ErrMalformed)
	}

	var env envelope
	if err := msgpack.Unmarshal(m.Data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}

	switch env.Kind {
	case FrameMeta:
		meta, err := validateMeta(env.Name, env.Size)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Kind: FrameMeta, Meta: meta}, nil
	case FrameChunk:
		return Frame{Kind: FrameChunk, Data: env.Data}, nil
	case FrameEnd:
		return Frame{Kind: FrameEnd}, nil
	default:
		return Frame{}, fmt.Errorf("%w: unknown frame kind %d", ErrMalformed, env.Kind)
	}
}
