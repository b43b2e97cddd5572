package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Roomdrop/internal/files"
	"github.com/BioHazard786/Roomdrop/internal/peer"
	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/signaling"
	"github.com/BioHazard786/Roomdrop/internal/transfer"
	"github.com/BioHazard786/Roomdrop/internal/ui"
	"github.com/BioHazard786/Roomdrop/internal/utils"
)

// ackTimeout is how long the sender waits for the receiver to hang up
// after the last byte has drained.
const ackTimeout = 5 * time.Second

var (
	flagSendTo   string
	flagSendName string
)

var sendCmd = &cobra.Command{
	Use:     "send <room-id> <file>",
	Aliases: []string{"s"},
	Short:   "Send a file to a peer in a room",
	Long: `Join a room and send one file directly to another peer.

The target is the peer given with --to, otherwise the first peer already in
the room, otherwise the first peer to join.

Examples:
  roomdrop send apple-river-stone report.pdf
  roomdrop send apple-river-stone report.pdf --to 5f0c...
  roomdrop send apple-river-stone report.pdf --relay --turn turn.example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendFile(cmd.Context(), args[0], args[1])
	},
}

func sendFile(ctx context.Context, roomID, path string) error {
	info, err := files.Validate(path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	codec, err := transfer.CodecByName(cfg.Framing)
	if err != nil {
		return transfer.NewError("load config", err)
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	peers, err := conn.join(ctx, roomID, flagSendName)
	if err != nil {
		return err
	}
	ui.PrintSuccessf("Joined room %s", ui.BoldStyle.Render(roomID))

	target, err := pickTarget(ctx, conn, peers, flagSendTo)
	if err != nil {
		return err
	}
	ui.PrintInfof("Sending to %s", describePeer(target))

	sess, err := conn.newSession(target.ID)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go conn.routeSignals(ctx, sess, target.ID)

	dc, err := sess.Call()
	if err != nil {
		return transfer.NewError("start connection", err)
	}
	ch := peer.NewChannel(dc)
	if err := openChannel(ctx, sess, ch); err != nil {
		return err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return transfer.NewFileError("open", info.Name, err)
	}
	defer f.Close()

	tui := ui.NewTransferUI(ui.ModeSend, info.Name, info.Size, cancel)
	sender := transfer.NewSender(ch, codec)
	sender.OnProgress(func(sent, total int64) { tui.Update(sent) })

	start := time.Now()
	tui.Start()
	err = sender.SendFile(ctx, info.Name, info.Size, f)
	if err == nil {
		tui.SetState("Waiting for the receiver...")
		ch.WaitForDrain()
		select {
		case <-ch.Closed():
		case <-time.After(ackTimeout):
		}
	}
	tui.Finish(err)
	if err != nil {
		return transfer.NewFileError("send", info.Name, err)
	}

	elapsed := time.Since(start)
	fmt.Println()
	ui.RenderTransferSummary("Transfer Summary", ui.TransferSummary{
		Status:   ui.IconComplete + " Complete",
		File:     info.Name,
		Size:     utils.FormatSize(info.Size),
		Duration: utils.FormatTimeDuration(elapsed),
		Speed:    utils.FormatSpeed(utils.Rate(info.Size, elapsed)),
	})
	return nil
}

// pickTarget chooses the receiving peer. Without an explicit id the first
// listed peer wins, then the first to join.
func pickTarget(ctx context.Context, conn *connection, peers []protocol.PeerInfo, want string) (protocol.PeerInfo, error) {
	for _, p := range peers {
		if want == "" || p.ID == want {
			return p, nil
		}
	}

	msg := "Waiting for a peer to join..."
	if want != "" {
		msg = fmt.Sprintf("Waiting for peer %s to join...", want)
	}
	sp := ui.NewWaitingSpinner(msg)
	sp.Start()
	defer sp.Stop()

	for {
		select {
		case p := <-conn.handler.PeerJoined:
			if want == "" || p.ID == want {
				return p, nil
			}
			sp.SetMessage(fmt.Sprintf("%s joined, still waiting for %s...", p.ID, want))
		case <-conn.handler.PeerLeft:
		case err := <-conn.handler.Error:
			return protocol.PeerInfo{}, transfer.NewError("wait for peer", err)
		case <-conn.handler.Done():
			return protocol.PeerInfo{}, transfer.NewError("wait for peer", signaling.ErrClosed)
		case <-ctx.Done():
			return protocol.PeerInfo{}, ctx.Err()
		}
	}
}

func describePeer(p protocol.PeerInfo) string {
	if p.Name != "" {
		return fmt.Sprintf("%s (%s)", ui.BoldStyle.Render(p.Name), p.ID)
	}
	return ui.BoldStyle.Render(p.ID)
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&flagSendTo, "to", "", "Peer id to send to")
	sendCmd.Flags().StringVarP(&flagSendName, "name", "n", "", "Display name shown to other peers")
}
