package peer

import (
	"context"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Roomdrop/internal/transfer"
)

// Buffer management for the outbound data channel queue.
const (
	HighWaterMark = 2 * 1024 * 1024
	LowWaterMark  = 512 * 1024
	SendTimeout   = 60 * time.Second
	DrainTimeout  = 30 * time.Second
)

// Channel adapts a pion data channel to transfer.Channel. String messages
// go out with SendText so the remote sees them as text.
type Channel struct {
	dc *pion.DataChannel

	opened    chan struct{}
	openOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once
	low       chan struct{}

	mu      sync.Mutex
	onClose []func()

	// Inbound messages are queued until Attach so nothing sent right after
	// open is lost. msgMu keeps delivery in arrival order.
	msgMu   sync.Mutex
	handle  func(transfer.Message)
	backlog []transfer.Message
}

func NewChannel(dc *pion.DataChannel) *Channel {
	c := &Channel{
		dc:     dc,
		opened: make(chan struct{}),
		closed: make(chan struct{}),
		low:    make(chan struct{}, 1),
	}

	dc.SetBufferedAmountLowThreshold(LowWaterMark)
	dc.OnBufferedAmountLow(func() {
		select {
		case c.low <- struct{}{}:
		default:
		}
	})
	dc.OnOpen(func() {
		c.openOnce.Do(func() { close(c.opened) })
	})
	dc.OnClose(c.handleClose)
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		c.deliver(transfer.Message{Data: msg.Data, IsString: msg.IsString})
	})

	return c
}

// Label is the negotiated channel label.
func (c *Channel) Label() string {
	return c.dc.Label()
}

func (c *Channel) deliver(msg transfer.Message) {
	c.msgMu.Lock()
	defer c.msgMu.Unlock()
	if c.handle == nil {
		c.backlog = append(c.backlog, msg)
		return
	}
	c.handle(msg)
}

// Open waits for the channel to open.
func (c *Channel) Open(ctx context.Context) error {
	if c.IsOpen() {
		return nil
	}
	select {
	case <-c.opened:
		return nil
	case <-c.closed:
		return transfer.ErrChannelNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) IsOpen() bool {
	return c.dc.ReadyState() == pion.DataChannelStateOpen
}

// Send queues msg, waiting while more than HighWaterMark bytes are buffered.
func (c *Channel) Send(msg transfer.Message) error {
	if err := c.waitForWindow(); err != nil {
		return err
	}
	if msg.IsString {
		return c.dc.SendText(string(msg.Data))
	}
	return c.dc.Send(msg.Data)
}

func (c *Channel) waitForWindow() error {
	buffered := c.dc.BufferedAmount()
	if buffered < HighWaterMark {
		return nil
	}

	timer := time.NewTimer(SendTimeout)
	defer timer.Stop()
	select {
	case <-c.low:
		return nil
	case <-c.closed:
		return transfer.ErrAborted
	case <-timer.C:
		if c.dc.BufferedAmount() < buffered {
			return nil
		}
		return transfer.WrapError("send", transfer.ErrAborted, "buffer not draining")
	}
}

// WaitForDrain blocks until everything queued has been handed to the
// network, the channel closes, or DrainTimeout passes.
func (c *Channel) WaitForDrain() {
	deadline := time.Now().Add(DrainTimeout)
	for c.dc.BufferedAmount() > 0 && time.Now().Before(deadline) {
		if !c.IsOpen() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Attach feeds inbound messages to r. The receiver is aborted when the
// channel closes; onErr sees both frame errors and transfer.ErrAborted for
// an interrupted file.
func (c *Channel) Attach(r *transfer.Receiver, onErr func(error)) {
	handle := func(msg transfer.Message) {
		if err := r.Handle(msg); err != nil && onErr != nil {
			onErr(err)
		}
	}

	c.msgMu.Lock()
	backlog := c.backlog
	c.backlog = nil
	for _, msg := range backlog {
		handle(msg)
	}
	c.handle = handle
	c.msgMu.Unlock()

	c.OnClose(func() {
		if r.Abort() && onErr != nil {
			onErr(transfer.NewError("receive", transfer.ErrAborted))
		}
	})
}

// OnClose registers fn to run once the channel closes. If it already has,
// fn runs immediately.
func (c *Channel) OnClose(fn func()) {
	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		fn()
		return
	default:
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// Closed is closed once the channel has closed.
func (c *Channel) Closed() <-chan struct{} {
	return c.closed
}

func (c *Channel) handleClose() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.closed)
		hooks := c.onClose
		c.onClose = nil
		c.mu.Unlock()

		for _, fn := range hooks {
			fn()
		}
	})
}

func (c *Channel) Close() error {
	return c.dc.Close()
}
