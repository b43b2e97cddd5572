package relay

import (
	"github.com/BioHazard786/Roomdrop/internal/protocol"
)

// onSignal forwards an opaque negotiation payload to the target peer. A
// target that cannot be resolved drops the message without telling the
// sender.
func (h *Hub) onSignal(c *Client, msg *protocol.Message) {
	var req protocol.SignalRequest
	if err := msg.Decode(&req); err != nil {
		c.log.Debug("bad signal payload", "err", err)
		h.replyError(c, protocol.TypeSignal, "malformed signal payload")
		return
	}

	conn, ok := h.dir.FindConnectionByPeerID(req.TargetID)
	if !ok {
		c.log.Debug("signal dropped: unknown target", "target", req.TargetID)
		return
	}
	target, ok := h.clients[conn]
	if !ok {
		c.log.Debug("signal dropped: target not connected", "target", req.TargetID)
		return
	}

	from := string(c.ID)
	if p, ok := h.dir.FindPeerByConnection(c.ID); ok {
		from = p.ID
	}

	target.deliver(protocol.MustNew(protocol.TypeSignal, protocol.SignalDelivery{
		From:    from,
		Payload: req.Payload,
	}))
	c.log.Debug("signal forwarded", "from", from, "target", req.TargetID)
}
