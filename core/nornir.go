// Package core binds an inventory, a runtime configuration and a runner together, and runs tasks
// against the inventory hosts.
package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/connection"
	"github.com/damianoneill/netconf-tasks/inventory"
	"github.com/damianoneill/netconf-tasks/task"
)

// Nornir runs tasks against the hosts of an inventory.
type Nornir struct {
	Inventory  *inventory.Inventory
	Config     *config.Config
	Data       *task.GlobalState
	Runner     task.Runner
	Processors task.Processors
	Logger     *zap.Logger
}

// Option implements options for configuring a new Nornir.
type Option func(*Nornir)

// WithLogger defines the logger used by tasks.
func WithLogger(logger *zap.Logger) Option {
	return func(nr *Nornir) {
		nr.Logger = logger
	}
}

// WithRunner overrides the runner defined by the runtime configuration.
func WithRunner(r task.Runner) Option {
	return func(nr *Nornir) {
		nr.Runner = r
	}
}

// WithRegistry defines the connection registry used by the inventory hosts.
func WithRegistry(r *connection.Registry) Option {
	return func(nr *Nornir) {
		nr.Inventory.WithRegistry(r)
	}
}

// WithProcessors defines the processors notified of task progress.
func WithProcessors(ps ...task.Processor) Option {
	return func(nr *Nornir) {
		nr.Processors = ps
	}
}

// Init loads the inventory defined by the runtime configuration and creates a Nornir around it.
func Init(cfg *config.Config, opts ...Option) (*Nornir, error) {
	inv, err := inventory.Load(cfg.Inventory.HostFile, cfg.Inventory.GroupFile, cfg.Inventory.DefaultsFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load inventory")
	}
	return New(inv, cfg, opts...), nil
}

// New creates a Nornir around the supplied inventory.
func New(inv *inventory.Inventory, cfg *config.Config, opts ...Option) *Nornir {
	if cfg == nil {
		cfg = config.New()
	}
	nr := &Nornir{
		Inventory: inv,
		Config:    cfg,
		Data:      task.NewGlobalState(cfg.DryRun),
		Runner:    task.NewRunner(cfg.Runner),
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(nr)
	}
	return nr
}

func (nr *Nornir) withInventory(inv *inventory.Inventory) *Nornir {
	c := *nr
	c.Inventory = inv
	return &c
}

// Filter delivers a Nornir restricted to the hosts for which f returns true.
// The returned Nornir shares state and connections with the receiver.
func (nr *Nornir) Filter(f func(*inventory.Host) bool) *Nornir {
	return nr.withInventory(nr.Inventory.Filter(f))
}

// FilterBy delivers a Nornir restricted to the hosts whose resolved value for key equals value.
func (nr *Nornir) FilterBy(key string, value interface{}) *Nornir {
	return nr.withInventory(nr.Inventory.FilterBy(key, value))
}

// FilterByExpr delivers a Nornir restricted to the hosts matching a "key=value" expression.
func (nr *Nornir) FilterByExpr(expr string) (*Nornir, error) {
	kv := strings.SplitN(expr, "=", 2)
	if len(kv) != 2 || kv[0] == "" {
		return nil, errors.Errorf("invalid filter %q, expected key=value", expr)
	}
	return nr.withInventory(nr.Inventory.FilterByString(kv[0], kv[1])), nil
}

// RunOption implements options for configuring a run.
type RunOption func(*runConfig)

type runConfig struct {
	onFailed bool
}

// OnFailed includes hosts that previously failed in the run.
func OnFailed() RunOption {
	return func(c *runConfig) {
		c.onFailed = true
	}
}

// Run runs f, identified by name, against every host in the inventory, excluding hosts that have
// previously failed unless OnFailed is specified.
// If the configuration requests it, an error wrapping task.ErrHostFailed is returned, along with the
// results, when f fails against any host.
func (nr *Nornir) Run(ctx context.Context, name string, f task.Func, opts ...RunOption) (*task.AggregatedResult, error) {
	rc := &runConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	hosts := make([]*inventory.Host, 0, nr.Inventory.Len())
	for _, h := range nr.Inventory.Hosts() {
		if rc.onFailed || !nr.Data.IsFailed(h.Name) {
			hosts = append(hosts, h)
		}
	}

	ar := task.NewAggregatedResult(uuid.New().String(), name)
	nr.Processors.TaskStarted(name, ar.ID)

	ctx = connection.WithTrace(ctx, connection.DiagnosticHooks(nr.Logger.With(zap.String("run", ar.ID))))

	results := nr.Runner.Run(ctx, hosts, func(ctx context.Context, h *inventory.Host) task.MultiResult {
		t := task.New(name, h, nr.Config, nr.Data, nr.Logger.With(zap.String("run", ar.ID)), nr.Processors)
		return task.Execute(ctx, t, f)
	})
	for host, mr := range results {
		// Hosts the runner never dispatched carry a bare failed result.
		if len(mr) == 1 && mr[0].Name == "" {
			mr[0].Name = name
			if mr[0].Failed {
				nr.Data.AddFailedHost(host)
			}
		}
		ar.Add(host, mr)
	}

	nr.Processors.TaskCompleted(name, ar)

	if nr.Config.Core.RaiseOnError && ar.Failed() {
		return ar, errors.Wrapf(task.ErrHostFailed, "%s failed on %d host(s)", name, len(ar.FailedHosts()))
	}
	return ar, nil
}

// Close closes every open connection to the inventory hosts, returning the first error encountered.
func (nr *Nornir) Close(ctx context.Context) error {
	ctx = connection.WithTrace(ctx, connection.DiagnosticHooks(nr.Logger))
	var first error
	for _, h := range nr.Inventory.Hosts() {
		if err := h.CloseConnections(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
