package main

import (
	"log/slog"
	"os"

	"github.com/aryankumar/taskpool/internal/cli"
	"github.com/aryankumar/taskpool/internal/util"
)

func main() {
	// First SIGINT/SIGTERM cancels ctx and lets serve drain its pools
	ctx := util.SetupSignalHandler()

	if err := cli.Execute(ctx); err != nil {
		slog.Error("command failed", "error", util.FriendlyError(err))
		os.Exit(1)
	}
}
