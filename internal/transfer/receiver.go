package transfer

import (
	"fmt"
	"sync"
)

// Receiver reassembles frames into files. Handle is fed from the channel's
// message callback; Abort may be called from any goroutine.
//
// Any error returned by Handle leaves the receiver idle with partial state
// discarded. A Meta arriving mid-transfer drops the unfinished file and
// starts over.
type Receiver struct {
	codec Codec
	sink  Sink

	mu         sync.Mutex
	active     bool
	meta       Meta
	received   int64
	onProgress func(meta Meta, received int64)
}

func NewReceiver(codec Codec, sink Sink) *Receiver {
	return &Receiver{codec: codec, sink: sink}
}

// NewMemoryReceiver delivers each completed file to deliver.
func NewMemoryReceiver(codec Codec, deliver func(File)) *Receiver {
	return NewReceiver(codec, &MemorySink{Deliver: deliver})
}

// OnProgress registers fn to be called after every Meta and chunk.
func (r *Receiver) OnProgress(fn func(meta Meta, received int64)) {
	r.mu.Lock()
	r.onProgress = fn
	r.mu.Unlock()
}

// Handle processes one inbound message.
func (r *Receiver) Handle(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame, err := r.codec.Decode(msg)
	if err != nil {
		r.reset()
		return NewError("receive", err)
	}

	switch frame.Kind {
	case FrameMeta:
		r.reset()
		if err := r.sink.Begin(frame.Meta); err != nil {
			return err
		}
		r.active, r.meta, r.received = true, frame.Meta, 0
		r.progress()
		return nil

	case FrameChunk:
		if !r.active {
			return WrapError("receive", ErrUnexpectedFrame, "chunk before meta")
		}
		if r.received+int64(len(frame.Data)) > r.meta.Size {
			name := r.meta.Name
			r.reset()
			return &TransferError{Op: "receive", File: name, Err: ErrSizeMismatch, Details: "more data than announced"}
		}
		if err := r.sink.Write(frame.Data); err != nil {
			r.reset()
			return err
		}
		r.received += int64(len(frame.Data))
		r.progress()
		return nil

	case FrameEnd:
		if !r.active {
			return WrapError("receive", ErrUnexpectedFrame, "end before meta")
		}
		if r.received != r.meta.Size {
			name, got, want := r.meta.Name, r.received, r.meta.Size
			r.reset()
			return &TransferError{Op: "receive", File: name, Err: ErrSizeMismatch, Details: fmt.Sprintf("got %d of %d bytes", got, want)}
		}
		r.active = false
		return r.sink.Commit()

	default:
		return WrapError("receive", ErrMalformed, frame.Kind.String())
	}
}

// Abort drops any partially received file. It reports whether a transfer
// was in progress.
func (r *Receiver) Abort() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	was := r.active
	r.reset()
	return was
}

// InProgress reports whether a Meta has been seen without its End.
func (r *Receiver) InProgress() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Receiver) reset() {
	if r.active {
		r.sink.Discard()
	}
	r.active, r.meta, r.received = false, Meta{}, 0
}

func (r *Receiver) progress() {
	if r.onProgress != nil {
		r.onProgress(r.meta, r.received)
	}
}
