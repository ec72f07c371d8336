package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/util"
)

const (
	defaultConfigName = ".taskpool"
	defaultConfigDir  = ".taskpool"

	// EnvPrefix prefixes environment overrides, e.g.
	// TASKPOOL_THREAD_POOL_DEFAULTS_MAX_THREADS=4
	EnvPrefix = "TASKPOOL"

	// DefaultShutdownTimeout bounds the stop hook when the file does not set one
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultAdminAddress is where the management server listens by default
	DefaultAdminAddress = "127.0.0.1:9090"

	// DefaultOutputFormat is the CLI rendering used when none is configured
	DefaultOutputFormat = "table"
)

// envKeys are the settings that can be supplied through the environment.
// Per-pool sections are only read from the file.
var envKeys = []string{
	"thread-pool.defaults.min-threads",
	"thread-pool.defaults.max-threads",
	"thread-pool.defaults.timeout",
	"thread-pool.defaults.queue-size",
	"thread-pool.defaults.rejected-handler",
	"thread-pool.shutdown-timeout",
	"admin.address",
	"output.format",
	"output.no-color",
}

// Manager loads taskpool configuration and resolves the tunables of each pool
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager. An empty path searches
// ~/.taskpool/.taskpool.yaml and ~/.taskpool.yaml.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &Config{},
	}
}

// Viper exposes the underlying instance so command-line flags can be bound to it
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}

// Path returns the file the configuration was read from, if any
func (m *Manager) Path() string {
	if used := m.viper.ConfigFileUsed(); used != "" {
		return used
	}
	return m.configPath
}

// Load reads the configuration file and environment, then validates the
// resolved tunables of every pool. A missing file yields the defaults.
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := m.viper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	m.config = &Config{}

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := m.viper.Unmarshal(m.config, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m.config, nil
}

// decodeHook converts duration strings ("30m") and policy names
// ("discard-oldest") while decoding
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// Save writes the current configuration to the config path, or to
// ~/.taskpool/.taskpool.yaml when none was given
func (m *Manager) Save() error {
	path := m.Path()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, defaultConfigDir, defaultConfigName+".yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(m.settings())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.configPath = path
	return nil
}

// settings renders the configuration in file layout
func (m *Manager) settings() map[string]interface{} {
	tp := map[string]interface{}{}
	if d := m.config.ThreadPool.Defaults.settings(); len(d) > 0 {
		tp["defaults"] = d
	}
	if len(m.config.ThreadPool.Pools) > 0 {
		pools := make(map[string]interface{}, len(m.config.ThreadPool.Pools))
		for name, pc := range m.config.ThreadPool.Pools {
			pools[name] = pc.settings()
		}
		tp["pools"] = pools
	}
	if m.config.ThreadPool.ShutdownTimeout != nil {
		tp["shutdown-timeout"] = m.config.ThreadPool.ShutdownTimeout.String()
	}

	return map[string]interface{}{
		"thread-pool": tp,
		"admin":       map[string]interface{}{"address": m.config.Admin.Address},
		"output": map[string]interface{}{
			"format":   m.config.Output.Format,
			"no-color": m.config.Output.NoColor,
		},
	}
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetPoolConfig returns the overrides for a pool
func (m *Manager) GetPoolConfig(name string) (PoolConfig, bool) {
	if m.config.ThreadPool.Pools == nil {
		return PoolConfig{}, false
	}

	pc, ok := m.config.ThreadPool.Pools[poolKey(name)]
	return pc, ok
}

// SetPoolConfig sets or replaces the overrides for a pool
func (m *Manager) SetPoolConfig(name string, pc PoolConfig) {
	if m.config.ThreadPool.Pools == nil {
		m.config.ThreadPool.Pools = make(map[string]PoolConfig)
	}

	m.config.ThreadPool.Pools[poolKey(name)] = pc
}

// RemovePoolConfig removes the overrides for a pool
func (m *Manager) RemovePoolConfig(name string) {
	delete(m.config.ThreadPool.Pools, poolKey(name))
}

// PoolNames returns the names of every pool with a section, sorted
func (m *Manager) PoolNames() []string {
	names := make([]string, 0, len(m.config.ThreadPool.Pools))
	for name := range m.config.ThreadPool.Pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PoolOptions resolves the tunables of a pool: the pool's own section first,
// then the defaults section, then the built-in defaults.
func (m *Manager) PoolOptions(name string) (executor.Options, error) {
	opts := executor.DefaultOptions()
	m.config.ThreadPool.Defaults.applyTo(&opts)
	if pc, ok := m.GetPoolConfig(name); ok {
		pc.applyTo(&opts)
	}

	return opts, util.WrapErrorf(opts.Validate(), "pool %s", name)
}

// ShutdownTimeout returns how long a pool may take to drain at shutdown
func (m *Manager) ShutdownTimeout() time.Duration {
	if m.config.ThreadPool.ShutdownTimeout == nil {
		return DefaultShutdownTimeout
	}
	return *m.config.ThreadPool.ShutdownTimeout
}

// Validate resolves every configured pool, plus the defaults on their own,
// and returns the first configuration error
func (m *Manager) Validate() error {
	defaults := executor.DefaultOptions()
	m.config.ThreadPool.Defaults.applyTo(&defaults)
	if err := util.WrapErrorf(defaults.Validate(), "thread-pool defaults"); err != nil {
		return err
	}
	for _, name := range m.PoolNames() {
		if _, err := m.PoolOptions(name); err != nil {
			return err
		}
	}
	if t := m.config.ThreadPool.ShutdownTimeout; t != nil && *t <= 0 {
		return util.NewValidationError("shutdown-timeout", *t, "must be positive")
	}
	return nil
}

// applyDefaults fills settings that have a single built-in value. Pool
// tunables are resolved lazily by PoolOptions so unset stays distinct from zero.
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	if m.config.Admin.Address == "" {
		m.config.Admin.Address = DefaultAdminAddress
	}

	if m.config.Output.Format == "" {
		m.config.Output.Format = DefaultOutputFormat
	}
}

func poolKey(name string) string {
	return strings.ToLower(name)
}
