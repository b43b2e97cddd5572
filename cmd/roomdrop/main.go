package main

import (
	"log/slog"

	"github.com/BioHazard786/Roomdrop/internal/commands"
	"github.com/BioHazard786/Roomdrop/internal/logging"
)

func main() {
	logging.Init(slog.LevelError)
	commands.Execute()
}
