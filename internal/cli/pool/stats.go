package pool

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/aryankumar/taskpool/internal/admin"
	"github.com/aryankumar/taskpool/internal/cli/cmdutil"
	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
)

func newStatsCmd() *cobra.Command {
	var wide bool

	cmd := &cobra.Command{
		Use:   "stats [NAME]",
		Short: "Show pool statistics",
		Long: `Show the statistics of every pool, or of one pool by name: sizes,
active and queued tasks, the rejected handler and task counters.`,
		Example: `  # All pools
  taskpool pool stats

  # One pool with every column
  taskpool pool stats worker --wide

  # Against another server
  taskpool pool stats --server 10.0.0.5:9090 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			client, cfg := cmdutil.NewAdminClient()
			return runStats(cmd.Context(), cmd.OutOrStdout(), client, cfg, name, wide)
		},
	}

	cmd.Flags().BoolVar(&wide, "wide", false, "show every statistic")

	return cmd
}

func runStats(ctx context.Context, w io.Writer, client *admin.Client, cfg *config.Config, name string, wide bool) error {
	stats, err := fetchStats(ctx, client, name)
	if err != nil {
		return err
	}

	formatter, err := cmdutil.NewFormatter(cfg, wide)
	if err != nil {
		return err
	}
	return formatter.FormatStats(w, stats)
}

func fetchStats(ctx context.Context, client *admin.Client, name string) ([]executor.Stats, error) {
	if name == "" {
		return client.List(ctx)
	}

	s, err := client.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return []executor.Stats{s}, nil
}
