package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/core"
	"github.com/damianoneill/netconf-tasks/logging"
	"github.com/damianoneill/netconf-tasks/netconf"
	"github.com/damianoneill/netconf-tasks/task"
)

type options struct {
	configFile   string
	hostsFile    string
	groupsFile   string
	defaultsFile string
	filters      []string
	workers      int
	dryRun       bool
	logLevel     string

	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out}

	cmd := &cobra.Command{
		Use:   "netconf-tasks",
		Short: "Run NETCONF operations against an inventory of network devices",
		Long: `netconf-tasks runs NETCONF operations against the hosts of a simple YAML inventory
and prints the result for each host as YAML.

The exit status is non-zero if the operation fails on any host.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configFile, "config", "c", "", "configuration file")
	flags.StringVar(&o.hostsFile, "hosts-file", "", "inventory hosts file")
	flags.StringVar(&o.groupsFile, "groups-file", "", "inventory groups file")
	flags.StringVar(&o.defaultsFile, "defaults-file", "", "inventory defaults file")
	flags.StringArrayVarP(&o.filters, "filter", "f", nil, "restrict hosts to those matching key=value (repeatable)")
	flags.IntVarP(&o.workers, "workers", "w", 0, "number of hosts handled concurrently")
	flags.BoolVar(&o.dryRun, "dry-run", false, "validate changes without applying them")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newCapabilitiesCmd(o),
		newGetConfigCmd(o),
		newEditConfigCmd(o),
		newLockCmd(o, "lock", "Lock a datastore", netconf.Lock),
		newLockCmd(o, "unlock", "Unlock a datastore", netconf.Unlock),
		newCommitCmd(o),
	)
	return cmd
}

func newCapabilitiesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Print the capabilities advertised by each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "netconf_capabilities", netconf.Capabilities)
		},
	}
}

func newGetConfigCmd(o *options) *cobra.Command {
	var source, subtree string
	cmd := &cobra.Command{
		Use:   "get-config",
		Short: "Print the configuration held by a datastore on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "netconf_get_config", netconf.GetConfig(source, subtree))
		},
	}
	cmd.Flags().StringVar(&source, "source", netconf.RunningCfg, "source datastore")
	cmd.Flags().StringVar(&subtree, "subtree", "", "subtree filter xml")
	return cmd
}

func newEditConfigCmd(o *options) *cobra.Command {
	var target, configFile, defaultOperation string
	cmd := &cobra.Command{
		Use:   "edit-config",
		Short: "Apply configuration to a datastore on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := os.ReadFile(configFile) // #nosec G304
			if err != nil {
				return errors.Wrap(err, "failed to read configuration")
			}
			var opts []netconf.EditOption
			if defaultOperation != "" {
				opts = append(opts, netconf.DefaultOperation(defaultOperation))
			}
			return o.run(cmd, "netconf_edit_config", netconf.EditConfig(target, string(cfg), opts...))
		},
	}
	cmd.Flags().StringVar(&target, "target", netconf.CandidateCfg, "target datastore")
	cmd.Flags().StringVar(&configFile, "config-file", "", "file holding the configuration xml")
	cmd.Flags().StringVar(&defaultOperation, "default-operation", "", "default operation (merge, replace, none)")
	_ = cmd.MarkFlagRequired("config-file")
	return cmd
}

func newLockCmd(o *options, use, short string, f func(target string) task.Func) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "netconf_"+use, f(target))
		},
	}
	cmd.Flags().StringVar(&target, "target", netconf.CandidateCfg, "target datastore")
	return cmd
}

func newCommitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "commit",
		Short: "Commit the candidate datastore on each host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, "netconf_commit", netconf.Commit)
		},
	}
}

// config resolves the runtime configuration: the configuration file (or defaults), then the
// environment, then any flags set on the command line.
func (o *options) config(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()
	if o.configFile != "" {
		var err error
		if cfg, err = config.Load(o.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("hosts-file") {
		cfg.Inventory.HostFile = o.hostsFile
	}
	if flags.Changed("groups-file") {
		cfg.Inventory.GroupFile = o.groupsFile
	}
	if flags.Changed("defaults-file") {
		cfg.Inventory.DefaultsFile = o.defaultsFile
	}
	if flags.Changed("workers") {
		if o.workers < 1 {
			return nil, errors.Errorf("invalid workers %d", o.workers)
		}
		cfg.Runner.NumWorkers = o.workers
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = o.dryRun
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

func (o *options) run(cmd *cobra.Command, name string, f task.Func) error {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer cleanup()

	nr, err := core.Init(cfg, core.WithLogger(logger), core.WithProcessors(task.LoggingProcessor(logger)))
	if err != nil {
		return err
	}
	defer func() {
		if err := nr.Close(context.Background()); err != nil {
			logger.Warn("failed to close connections", zap.Error(err))
		}
	}()

	// Filtered views share the hosts, and their connections, of nr.
	target := nr
	for _, expr := range o.filters {
		if target, err = target.FilterByExpr(expr); err != nil {
			return err
		}
	}

	ar, err := target.Run(cmd.Context(), name, f)
	if ar != nil {
		if werr := writeReport(o.out, ar); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	if ar.Failed() {
		return errors.Wrapf(task.ErrHostFailed, "%s failed on %d host(s)", name, len(ar.FailedHosts()))
	}
	return nil
}
