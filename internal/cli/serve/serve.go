package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryankumar/taskpool/internal/cli/cmdutil"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var (
		listen       string
		loadInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the configured pools behind the admin server",
		Long: `Start every pool in the thread-pool section and serve their statistics,
tunables and Prometheus metrics over HTTP until interrupted.

On SIGINT or SIGTERM the admin server stops and each pool is shut down,
waiting up to thread-pool.shutdown-timeout for running tasks.`,
		Example: `  # Serve on the configured admin address
  taskpool serve

  # Serve on another port and keep the pools busy
  taskpool serve --listen :9191 --load-interval 100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listen, loadInterval)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from admin.address)")
	cmd.Flags().DurationVar(&loadInterval, "load-interval", 0, "submit a synthetic task to every pool at this interval")

	return cmd
}

func runServe(ctx context.Context, listen string, loadInterval time.Duration) error {
	logger := slog.Default()

	manager, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	if listen == "" {
		listen = cmdutil.ServerAddress(manager.GetConfig())
	}

	svc, err := Build(manager, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}

	return svc.Run(ctx, ln, loadInterval)
}
