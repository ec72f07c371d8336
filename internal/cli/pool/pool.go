package pool

import (
	"github.com/spf13/cobra"
)

// NewPoolCmd creates the pool command
func NewPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect and tune pools of a running server",
		Long: `Inspect and tune the pools of a running "taskpool serve" process through
its admin API. The server address comes from --server or admin.address.`,
	}

	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newResizeCmd())

	return cmd
}
