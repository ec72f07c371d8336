package pool

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aryankumar/taskpool/internal/admin"
	"github.com/aryankumar/taskpool/internal/cli/cmdutil"
	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
)

func newResizeCmd() *cobra.Command {
	var (
		coreSize    int
		maxSize     int
		idleTimeout string
	)

	cmd := &cobra.Command{
		Use:   "resize NAME",
		Short: "Change a pool's sizes or idle timeout",
		Long: `Change the core size, maximum size or idle timeout of a running pool.
Only the flags given are sent. Synchronous pools cannot be resized.`,
		Example: `  # Grow the worker pool
  taskpool pool resize worker --core 4 --max 16

  # Let excess workers exit sooner
  taskpool pool resize worker --idle-timeout 15s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := admin.UpdateRequest{}
			if cmd.Flags().Changed("core") {
				req.CorePoolSize = &coreSize
			}
			if cmd.Flags().Changed("max") {
				req.MaxPoolSize = &maxSize
			}
			if cmd.Flags().Changed("idle-timeout") {
				req.IdleTimeout = &idleTimeout
			}
			client, cfg := cmdutil.NewAdminClient()
			return runResize(cmd.Context(), cmd.OutOrStdout(), client, cfg, args[0], req)
		},
	}

	cmd.Flags().IntVar(&coreSize, "core", 0, "workers kept alive while idle")
	cmd.Flags().IntVar(&maxSize, "max", 0, "maximum workers")
	cmd.Flags().StringVar(&idleTimeout, "idle-timeout", "", "idle time after which excess workers exit (e.g. 30s)")

	return cmd
}

func runResize(ctx context.Context, w io.Writer, client *admin.Client, cfg *config.Config, name string, req admin.UpdateRequest) error {
	if req.CorePoolSize == nil && req.MaxPoolSize == nil && req.IdleTimeout == nil {
		return fmt.Errorf("nothing to change: pass --core, --max or --idle-timeout")
	}

	slog.Debug("resizing pool", "pool", name)

	stats, err := client.Update(ctx, name, req)
	if err != nil {
		return err
	}

	formatter, err := cmdutil.NewFormatter(cfg, false)
	if err != nil {
		return err
	}
	return formatter.FormatStats(w, []executor.Stats{stats})
}
