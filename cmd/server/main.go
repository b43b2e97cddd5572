package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/logging"
	"github.com/BioHazard786/Roomdrop/internal/relay"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
	"github.com/BioHazard786/Roomdrop/internal/server"
	"github.com/BioHazard786/Roomdrop/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var opts config.ServerOptions

	cmd := &cobra.Command{
		Use:           "roomdrop-server",
		Short:         "Room and signaling relay for roomdrop peers",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (env ADDR)")
	cmd.Flags().StringVar(&opts.AllowedOrigin, "allowed-origin", "", "Allowed browser origin (env ALLOWED_ORIGIN)")
	cmd.Flags().IntVar(&opts.SendBuffer, "send-buffer", 0, "Outbound messages queued per connection (env SEND_BUFFER)")

	logging.Init(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Server) error {
	hub := relay.NewHub(rooms.NewDirectory())
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cfg, hub).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay listening", "addr", cfg.Addr, "origin", cfg.AllowedOrigin, "version", version.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	// Hijacked websocket connections are not tracked by Shutdown; stopping
	// the hub closes them.
	stopHub()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
