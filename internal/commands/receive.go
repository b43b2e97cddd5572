package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Roomdrop/internal/peer"
	"github.com/BioHazard786/Roomdrop/internal/protocol"
	"github.com/BioHazard786/Roomdrop/internal/signaling"
	"github.com/BioHazard786/Roomdrop/internal/transfer"
	"github.com/BioHazard786/Roomdrop/internal/ui"
	"github.com/BioHazard786/Roomdrop/internal/utils"
)

var (
	flagReceiveDir  string
	flagReceiveName string
)

var receiveCmd = &cobra.Command{
	Use:     "receive <room-id>",
	Aliases: []string{"r"},
	Short:   "Receive a file from a peer in a room",
	Long: `Join a room, accept the first incoming connection and save one file.

Examples:
  roomdrop receive apple-river-stone
  roomdrop receive apple-river-stone --dir ~/Downloads
  roomdrop receive apple-river-stone --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return receiveFile(cmd.Context(), args[0])
	},
}

type saved struct {
	path string
	size int64
}

func receiveFile(ctx context.Context, roomID string) error {
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

	if _, err := conn.join(ctx, roomID, flagReceiveName); err != nil {
		return err
	}
	ui.PrintSuccessf("Joined room %s as %s", ui.BoldStyle.Render(roomID), conn.userID)

	offer, early, err := waitForOffer(ctx, conn)
	if err != nil {
		return err
	}
	ui.PrintInfof("Incoming connection from %s", ui.BoldStyle.Render(offer.From))

	sess, err := conn.newSession(offer.From)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sess.HandleSignal(offer.Negotiation); err != nil {
		return transfer.NewError("answer offer", err)
	}
	for _, s := range early {
		if s.From == offer.From {
			if err := sess.HandleSignal(s.Negotiation); err != nil {
				slog.Warn("failed to apply early signal", "err", err)
			}
		}
	}
	go conn.routeSignals(ctx, sess, offer.From)

	acceptCtx, acceptCancel := context.WithTimeout(ctx, openTimeout)
	ch, err := sess.Accept(acceptCtx)
	acceptCancel()
	if err != nil {
		return transfer.NewError("accept channel", err)
	}
	defer ch.Close()
	if err := openChannel(ctx, sess, ch); err != nil {
		return err
	}

	done := make(chan saved, 1)
	failed := make(chan error, 1)
	sink := &transfer.DiskSink{
		Dir:  flagReceiveDir,
		Name: utils.UniqueFilename,
		Saved: func(path string, size int64) {
			select {
			case done <- saved{path: path, size: size}:
			default:
			}
		},
	}
	r := transfer.NewReceiver(codec, sink)

	stopWaiting := ui.RunWaitingSpinner("Waiting for the file...")

	var (
		mu    sync.Mutex
		tui   *ui.TransferUI
		start time.Time
		meta  transfer.Meta
	)
	r.OnProgress(func(m transfer.Meta, received int64) {
		mu.Lock()
		if tui == nil {
			stopWaiting()
			meta, start = m, time.Now()
			tui = ui.NewTransferUI(ui.ModeReceive, m.Name, m.Size, cancel)
			tui.Start()
		}
		t := tui
		mu.Unlock()
		t.Update(received)
	})
	ch.Attach(r, func(err error) {
		select {
		case failed <- err:
		default:
		}
	})

	var result saved
	select {
	case result = <-done:
		err = nil
	case err = <-failed:
	case <-sess.Failed():
		err = peer.ErrConnectionFailed
	case <-ctx.Done():
		err = ctx.Err()
	}
	stopWaiting()
	mu.Lock()
	t := tui
	mu.Unlock()
	if t != nil {
		t.Finish(err)
	}
	if err != nil {
		return transfer.NewError("receive file", err)
	}

	mu.Lock()
	elapsed, name := time.Since(start), meta.Name
	mu.Unlock()
	fmt.Println()
	ui.RenderTransferSummary("Transfer Summary", ui.TransferSummary{
		Status:   ui.IconComplete + " Complete",
		File:     name,
		Size:     utils.FormatSize(result.size),
		Duration: utils.FormatTimeDuration(elapsed),
		Speed:    utils.FormatSpeed(utils.Rate(result.size, elapsed)),
		SavedTo:  result.path,
	})
	return nil
}

// waitForOffer blocks until some peer sends an offer. Candidates that
// arrive first are returned so they can be applied after it.
func waitForOffer(ctx context.Context, conn *connection) (signaling.Signal, []signaling.Signal, error) {
	stop := ui.RunWaitingSpinner("Waiting for a sender...")
	defer stop()

	var early []signaling.Signal
	for {
		select {
		case s := <-conn.handler.Signal:
			if s.Negotiation.Kind == protocol.KindOffer {
				return s, early, nil
			}
			early = append(early, s)
		case <-conn.handler.PeerJoined:
		case <-conn.handler.PeerLeft:
		case err := <-conn.handler.Error:
			return signaling.Signal{}, nil, transfer.NewError("wait for sender", err)
		case <-conn.handler.Done():
			return signaling.Signal{}, nil, transfer.NewError("wait for sender", signaling.ErrClosed)
		case <-ctx.Done():
			return signaling.Signal{}, nil, ctx.Err()
		}
	}
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&flagReceiveDir, "dir", "d", ".", "Directory to save the file in")
	receiveCmd.Flags().StringVarP(&flagReceiveName, "name", "n", "", "Display name shown to other peers")
}
