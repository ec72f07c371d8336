package configcmd

import (
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit thread pool configuration",
		Long: `Inspect and edit the thread-pool section of the taskpool config file.

Pool tunables resolve from the built-in defaults, then the thread-pool
defaults section, then the pool's own section. Environment variables with
the TASKPOOL_ prefix override the defaults section.`,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newSetPoolCmd())
	cmd.AddCommand(newRemovePoolCmd())

	return cmd
}
