// Package commands implements the roomdrop CLI.
package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Roomdrop/internal/config"
	"github.com/BioHazard786/Roomdrop/internal/transfer"
	"github.com/BioHazard786/Roomdrop/internal/ui"
	"github.com/BioHazard786/Roomdrop/internal/version"
)

// flags holds the persistent options shared by every subcommand.
var flags config.Options

var rootCmd = &cobra.Command{
	Use:   "roomdrop",
	Short: "Send files peer-to-peer through a shared room",
	Long: `Roomdrop meets other peers in a named room on a small relay server and
then moves files directly between them over a WebRTC data channel. The relay
only forwards connection setup messages; file bytes never pass through it.`,
	Version: version.Version,
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, transfer.NewError("load config", err)
	}
	return cfg, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.Server, "server", "", "Relay server URL (env ROOMDROP_SERVER)")
	pf.StringVarP(&flags.STUNServer, "stun", "s", "", "Custom STUN server")
	pf.StringVarP(&flags.TURNServer, "turn", "t", "", "Custom TURN server")
	pf.StringVarP(&flags.TURNUser, "turn-user", "u", "", "TURN username")
	pf.StringVarP(&flags.TURNPass, "turn-pass", "p", "", "TURN password")
	pf.BoolVarP(&flags.ForceRelay, "relay", "r", false, "Force relay mode")
	pf.StringVar(&flags.Framing, "framing", "", "Data channel framing: text or msgpack (env FRAMING)")
}
