package config

// Defines structs describing the runtime configuration shared by the runner, the inventory
// and the connection plugins.

// Config defines the runtime configuration.
type Config struct {
	Inventory Inventory `yaml:"inventory"`
	Runner    Runner    `yaml:"runner"`
	Logging   Logging   `yaml:"logging"`
	SSH       SSH       `yaml:"ssh"`
	Core      Core      `yaml:"core"`
	// DryRun is the default dry-run mode applied to tasks that don't override it.
	DryRun bool `yaml:"dry_run"`
	// User holds arbitrary data made available to tasks.
	User map[string]interface{} `yaml:"user,omitempty"`
}

// Inventory defines the files a simple inventory is loaded from.
type Inventory struct {
	HostFile     string `yaml:"host_file"`
	GroupFile    string `yaml:"group_file"`
	DefaultsFile string `yaml:"defaults_file"`
}

// Runner defines how tasks are dispatched across hosts.
type Runner struct {
	// Plugin is either "threaded" or "serial".
	Plugin string `yaml:"plugin"`
	// NumWorkers bounds the number of hosts a threaded runner will handle concurrently.
	NumWorkers int `yaml:"num_workers"`
}

// Logging defines logger behaviour.
type Logging struct {
	// Disabled suppresses all logging output.
	Disabled bool `yaml:"disabled"`
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// LogFile, if set, receives log output (appended).
	LogFile string `yaml:"log_file"`
	// ToConsole additionally writes log output to stderr.
	ToConsole bool `yaml:"to_console"`
	// Format is either "json" or "console".
	Format string `yaml:"format"`
}

// SSH defines ssh client properties shared by connection plugins.
type SSH struct {
	// KnownHostsFile is used to verify host keys when a connection requests host key verification.
	KnownHostsFile string `yaml:"known_hosts_file"`
}

// Core defines runner-wide behaviour.
type Core struct {
	// RaiseOnError causes a run to return an error if any host failed.
	RaiseOnError bool `yaml:"raise_on_error"`
}

// Runner plugin names.
const (
	ThreadedRunner = "threaded"
	SerialRunner   = "serial"
)

// Default defines the values used for any configuration property that is not explicitly set.
var Default = Config{
	Inventory: Inventory{
		HostFile:     "hosts.yaml",
		GroupFile:    "groups.yaml",
		DefaultsFile: "defaults.yaml",
	},
	Runner: Runner{
		Plugin:     ThreadedRunner,
		NumWorkers: 20,
	},
	Logging: Logging{
		Level:  "info",
		Format: "json",
	},
}
