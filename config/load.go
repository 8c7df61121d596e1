package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file based configuration.
const (
	EnvLogFile    = "NETCONF_TASKS_LOG_FILE"
	EnvLogLevel   = "NETCONF_TASKS_LOG_LEVEL"
	EnvNumWorkers = "NETCONF_TASKS_NUM_WORKERS"
	EnvDryRun     = "NETCONF_TASKS_DRY_RUN"
)

// Option implements options for configuring a new Config.
type Option func(*Config)

// WithInventory defines the simple inventory files.
func WithInventory(hostFile, groupFile, defaultsFile string) Option {
	return func(c *Config) {
		c.Inventory = Inventory{HostFile: hostFile, GroupFile: groupFile, DefaultsFile: defaultsFile}
	}
}

// WithNumWorkers defines the number of hosts handled concurrently.
func WithNumWorkers(n int) Option {
	return func(c *Config) {
		c.Runner.NumWorkers = n
	}
}

// WithSerialRunner requests that hosts are handled one at a time.
func WithSerialRunner() Option {
	return func(c *Config) {
		c.Runner.Plugin = SerialRunner
	}
}

// WithLogging defines the logging configuration.
func WithLogging(l Logging) Option {
	return func(c *Config) {
		c.Logging = l
	}
}

// WithDryRun defines the default dry-run mode.
func WithDryRun(dryRun bool) Option {
	return func(c *Config) {
		c.DryRun = dryRun
	}
}

// WithRaiseOnError causes runs to fail if any host fails.
func WithRaiseOnError() Option {
	return func(c *Config) {
		c.Core.RaiseOnError = true
	}
}

// New creates a configuration defined by opts, with defaults applied to any unspecified values.
func New(opts ...Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return resolve(cfg)
}

// Load reads the YAML configuration file at path, applying defaults to any unspecified values.
// Relative inventory file paths are resolved against the directory holding the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg = resolve(cfg)
	base := filepath.Dir(path)
	for _, f := range []*string{&cfg.Inventory.HostFile, &cfg.Inventory.GroupFile, &cfg.Inventory.DefaultsFile} {
		if !filepath.IsAbs(*f) {
			*f = filepath.Join(base, *f)
		}
	}
	return cfg, nil
}

// FromEnv applies any configuration overrides defined in the environment.
func FromEnv(cfg *Config) (*Config, error) {
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.Logging.LogFile = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvNumWorkers); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, errors.Errorf("invalid %s value %q", EnvNumWorkers, v)
		}
		cfg.Runner.NumWorkers = n
	}
	if v, ok := os.LookupEnv(EnvDryRun); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s value", EnvDryRun)
		}
		cfg.DryRun = b
	}
	return cfg, nil
}

func resolve(cfg *Config) *Config {
	// Use supplied config, but apply any defaults to unspecified values.
	resolved := *cfg
	_ = mergo.Merge(&resolved, Default)
	if resolved.Runner.NumWorkers < 1 {
		resolved.Runner.NumWorkers = 1
	}
	return &resolved
}
