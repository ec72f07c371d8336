package configcmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryankumar/taskpool/internal/cli/cmdutil"
	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
)

func newSetPoolCmd() *cobra.Command {
	var (
		minThreads int
		maxThreads int
		timeout    time.Duration
		queueSize  int
		handler    string
	)

	cmd := &cobra.Command{
		Use:   "set-pool NAME",
		Short: "Create or update a pool section",
		Long: `Create or update the section of a named pool. Only the flags given on
the command line are written; other tunables keep their current value.`,
		Example: `  # A bounded pool that drops the oldest queued task when full
  taskpool config set-pool ingest --max-threads 8 --queue-size 100 --rejected-handler discard-oldest

  # A pool that runs tasks on the caller
  taskpool config set-pool inline --max-threads 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			update := config.PoolConfig{}
			if flags.Changed("min-threads") {
				update.MinThreads = config.Int(minThreads)
			}
			if flags.Changed("max-threads") {
				update.MaxThreads = config.Int(maxThreads)
			}
			if flags.Changed("timeout") {
				update.Timeout = config.Duration(timeout)
			}
			if flags.Changed("queue-size") {
				update.QueueSize = config.Int(queueSize)
			}
			if flags.Changed("rejected-handler") {
				policy, err := executor.ParsePolicy(handler)
				if err != nil {
					return err
				}
				update.RejectedHandler = config.Policy(policy)
			}
			return runSetPool(cmd, args[0], update)
		},
	}

	cmd.Flags().IntVar(&minThreads, "min-threads", 0, "workers kept alive while idle")
	cmd.Flags().IntVar(&maxThreads, "max-threads", 0, "maximum workers; 0 runs tasks on the caller")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "idle time after which excess workers exit")
	cmd.Flags().IntVar(&queueSize, "queue-size", 0, "queued tasks before the rejected handler applies")
	cmd.Flags().StringVar(&handler, "rejected-handler", "", "overflow policy (abort, caller-runs, discard-newest, discard-oldest)")

	return cmd
}

func runSetPool(cmd *cobra.Command, name string, update config.PoolConfig) error {
	if update.IsZero() {
		return fmt.Errorf("nothing to set for pool %s", name)
	}

	manager, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	merged, _ := manager.GetPoolConfig(name)
	if update.MinThreads != nil {
		merged.MinThreads = update.MinThreads
	}
	if update.MaxThreads != nil {
		merged.MaxThreads = update.MaxThreads
	}
	if update.Timeout != nil {
		merged.Timeout = update.Timeout
	}
	if update.QueueSize != nil {
		merged.QueueSize = update.QueueSize
	}
	if update.RejectedHandler != nil {
		merged.RejectedHandler = update.RejectedHandler
	}

	manager.SetPoolConfig(name, merged)
	if err := manager.Validate(); err != nil {
		return err
	}
	if err := manager.Save(); err != nil {
		return err
	}

	slog.Debug("saved pool section", "pool", name, "file", manager.Path())
	fmt.Fprintf(cmd.OutOrStdout(), "pool %s saved to %s\n", name, manager.Path())
	return nil
}

func newRemovePoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove-pool NAME",
		Short:   "Remove a pool section",
		Aliases: []string{"rm-pool"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemovePool(cmd, args[0])
		},
	}

	return cmd
}

func runRemovePool(cmd *cobra.Command, name string) error {
	manager, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	if _, ok := manager.GetPoolConfig(name); !ok {
		return fmt.Errorf("pool %s is not configured", name)
	}

	manager.RemovePoolConfig(name)
	if err := manager.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pool %s removed from %s\n", name, manager.Path())
	return nil
}
