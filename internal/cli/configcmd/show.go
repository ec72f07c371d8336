package configcmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aryankumar/taskpool/internal/cli/cmdutil"
	"github.com/aryankumar/taskpool/internal/config"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [POOL...]",
		Short: "Show the resolved options of each pool",
		Long: `Show the options each configured pool is built with after defaults
have been applied. Naming a pool that has no section of its own shows what
it would get from the defaults.`,
		Example: `  # Show every configured pool
  taskpool config show

  # Show one pool as YAML
  taskpool config show worker -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}

	return cmd
}

func runShow(w, info io.Writer, names []string) error {
	manager, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	if len(names) == 0 {
		names = manager.PoolNames()
	}

	rows, err := resolvedRows(manager, names)
	if err != nil {
		return err
	}

	formatter, err := cmdutil.NewFormatter(cfg, false)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No pools configured")
	} else if err := formatter.Format(w, rows); err != nil {
		return err
	}

	if manager.Path() != "" {
		fmt.Fprintf(info, "config: %s\n", manager.Path())
	}
	fmt.Fprintf(info, "shutdown timeout: %s, admin address: %s\n",
		manager.ShutdownTimeout(), cmdutil.ServerAddress(cfg))
	return nil
}

func resolvedRows(manager *config.Manager, names []string) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		opts, err := manager.PoolOptions(name)
		if err != nil {
			return nil, err
		}

		_, configured := manager.GetPoolConfig(name)
		rows = append(rows, map[string]interface{}{
			"pool":             name,
			"min-threads":      opts.MinThreads,
			"max-threads":      opts.MaxThreads,
			"timeout":          opts.IdleTimeout.String(),
			"queue-size":       opts.QueueSize,
			"rejected-handler": opts.Overflow.String(),
			"configured":       configured,
		})
	}
	return rows, nil
}
