package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Roomdrop/internal/rooms"
	"github.com/BioHazard786/Roomdrop/internal/signaling"
	"github.com/BioHazard786/Roomdrop/internal/transfer"
	"github.com/BioHazard786/Roomdrop/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Open a new room on the relay",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		stop := ui.RunConnectionSpinner("Creating room...")
		id, err := signaling.NewAPI(cfg.RoomsURL()).CreateRoom(cmd.Context())
		stop()
		if err != nil {
			return transfer.NewError("create room", err)
		}

		ui.RenderRoomInfo(id)
		return nil
	},
}

var roomCmd = &cobra.Command{
	Use:   "room <room-id>",
	Short: "Show who is in a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		stop := ui.RunConnectionSpinner("Looking up room...")
		room, err := signaling.NewAPI(cfg.RoomsURL()).GetRoom(cmd.Context(), args[0])
		stop()
		if errors.Is(err, rooms.ErrRoomNotFound) {
			return fmt.Errorf("room %q not found", args[0])
		}
		if err != nil {
			return transfer.NewError("get room", err)
		}

		ui.RenderPeersTable(room)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(roomCmd)
}
