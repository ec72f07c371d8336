// Package cmdutil holds helpers shared by the taskpool subcommands.
package cmdutil

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/aryankumar/taskpool/internal/admin"
	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/output"
)

// LoadConfig reads the file named by --config, or the default locations
func LoadConfig() (*config.Manager, error) {
	path := viper.GetString("config")
	manager := config.NewManager(path)

	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}

	slog.Debug("loaded configuration",
		"file", manager.Path(),
		"pools", len(cfg.ThreadPool.Pools),
		"shutdown_timeout", manager.ShutdownTimeout())
	return manager, nil
}

// NewFormatter builds the formatter selected by -o, falling back to the
// configured default. wide is honored by the table format only.
func NewFormatter(cfg *config.Config, wide bool) (output.Formatter, error) {
	name := viper.GetString("output")
	if name == "" && cfg != nil {
		name = cfg.Output.Format
	}

	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	noColor := viper.GetBool("no-color")
	if cfg != nil && cfg.Output.NoColor {
		noColor = true
	}

	return output.NewFormatter(format, output.WithNoColor(noColor), output.WithWide(wide)), nil
}

// ServerAddress returns --server, or the configured admin address
func ServerAddress(cfg *config.Config) string {
	if addr := viper.GetString("server"); addr != "" {
		return addr
	}
	if cfg != nil && cfg.Admin.Address != "" {
		return cfg.Admin.Address
	}
	return config.DefaultAdminAddress
}

// NewAdminClient creates a client for the admin server named by --server or
// the configuration, and returns the configuration it read. Configuration
// errors are not fatal here because the client only needs an address.
func NewAdminClient() (*admin.Client, *config.Config) {
	var cfg *config.Config
	if manager, err := LoadConfig(); err == nil {
		cfg = manager.GetConfig()
	} else {
		slog.Debug("using default admin address", "error", err)
	}

	addr := ServerAddress(cfg)
	slog.Debug("connecting to admin server", "address", addr)
	return admin.NewClient(addr, slog.Default()), cfg
}
