package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aryankumar/taskpool/internal/cli/configcmd"
	"github.com/aryankumar/taskpool/internal/cli/invoke"
	"github.com/aryankumar/taskpool/internal/cli/pool"
	"github.com/aryankumar/taskpool/internal/cli/serve"
	"github.com/aryankumar/taskpool/internal/config"
)

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskpool",
		Short: "Taskpool - managed worker pools with fail-fast batches",
		Long: `Taskpool runs named worker pools configured from a YAML file.

Pools have bounded queues with a configurable rejected handler, can run
tasks synchronously, and expose statistics and tunables over an admin
HTTP API with Prometheus metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig(cmd)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.taskpool/.taskpool.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (json, yaml, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("server", "", "admin server address (default from admin.address, "+config.DefaultAdminAddress+")")

	for _, name := range []string{"config", "output", "verbose", "no-color", "server"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd())
	rootCmd.AddCommand(invoke.NewInvokeCmd())
	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(pool.NewPoolCmd())

	return rootCmd
}

// initConfig lets TASKPOOL_* variables stand in for the global flags and sets
// up logging. The config file itself is read by each command through
// config.Manager.
func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	setupLogging(cmd)
}

// setupLogging configures structured logging with slog
func setupLogging(cmd *cobra.Command) {
	verbose := viper.GetBool("verbose")
	noColor := viper.GetBool("no-color")

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if noColor {
		// Machine-readable logs for non-interactive use
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}

	slog.SetDefault(slog.New(handler))

	if verbose {
		slog.Debug("verbose logging enabled", "pid", os.Getpid())
	}
}
