package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
)

// Sender streams one file at a time over an open channel.
type Sender struct {
	channel    Channel
	codec      Codec
	buffer     []byte
	onProgress func(sent, total int64)
}

func NewSender(ch Channel, codec Codec) *Sender {
	return &Sender{
		channel: ch,
		codec:   codec,
		buffer:  make([]byte, ChunkSize),
	}
}

// OnProgress registers fn to be called after every chunk.
func (s *Sender) OnProgress(fn func(sent, total int64)) {
	s.onProgress = fn
}

// SendFile sends Meta, then r in ChunkSize pieces, then End. size must be
// the exact number of bytes r yields; otherwise End is withheld and
// ErrSizeMismatch returned, so the receiver never completes a wrong file.
func (s *Sender) SendFile(ctx context.Context, name string, size int64, r io.Reader) error {
	if !s.channel.IsOpen() {
		return NewFileError("send", name, ErrChannelNotReady)
	}
	if size < 0 {
		return WrapError("send", ErrMalformed, fmt.Sprintf("negative size %d", size))
	}

	if err := s.send(Frame{Kind: FrameMeta, Meta: Meta{Name: name, Size: size}}); err != nil {
		return NewFileError("send meta", name, err)
	}

	var sent int64
	for {
		if err := ctx.Err(); err != nil {
			return NewFileError("send", name, err)
		}
		if !s.channel.IsOpen() {
			return NewFileError("send", name, ErrAborted)
		}

		n, err := io.ReadFull(r, s.buffer)
		if n > 0 {
			if sent+int64(n) > size {
				return &TransferError{Op: "send", File: name, Err: ErrSizeMismatch, Details: fmt.Sprintf("source longer than %d bytes", size)}
			}
			if err := s.send(Frame{Kind: FrameChunk, Data: s.buffer[:n]}); err != nil {
				return NewFileError("send chunk", name, err)
			}
			sent += int64(n)
			if s.onProgress != nil {
				s.onProgress(sent, size)
			}
			runtime.Gosched()
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return NewFileError("read", name, err)
		}
	}

	if sent != size {
		return &TransferError{Op: "send", File: name, Err: ErrSizeMismatch, Details: fmt.Sprintf("read %d of %d bytes", sent, size)}
	}
	if err := s.send(Frame{Kind: FrameEnd}); err != nil {
		return NewFileError("send end", name, err)
	}
	return nil
}

func (s *Sender) send(f Frame) error {
	msg, err := s.codec.Encode(f)
	if err != nil {
		return err
	}
	return s.channel.Send(msg)
}
