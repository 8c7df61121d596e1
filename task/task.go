// Package task defines how work is run against inventory hosts and how the outcome is reported.
package task

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/inventory"
)

// Func defines a unit of work run against a single host.
// A non-nil error marks the host result as failed; the error is recorded unchanged in the result.
type Func func(ctx context.Context, t *Task) (*Result, error)

// Task represents the execution of a Func against a single host.
type Task struct {
	// Name identifies the task in results and logs.
	Name string
	// Host is the host the task is run against.
	Host *inventory.Host
	// Config is the runtime configuration.
	Config *config.Config
	// Logger is scoped to the host and task.
	Logger *zap.Logger

	state      *GlobalState
	processors Processors
	subResults MultiResult
}

// New creates a task that will run against h.
func New(name string, h *inventory.Host, cfg *config.Config, state *GlobalState, logger *zap.Logger, procs Processors) *Task {
	if cfg == nil {
		cfg = config.New()
	}
	if state == nil {
		state = NewGlobalState(cfg.DryRun)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		Name:       name,
		Host:       h,
		Config:     cfg,
		Logger:     logger.With(zap.String("host", h.Name), zap.String("task", name)),
		state:      state,
		processors: procs,
	}
}

// IsDryRun resolves the dry-run mode for the task: override, if non-nil, takes priority over the
// global default.
func (t *Task) IsDryRun(override *bool) bool {
	if override != nil {
		return *override
	}
	return t.state.DryRun()
}

// Run runs f as a sub-task of t against the same host. The sub-task result is included in the
// results reported for t, and any failure is also returned as an error.
func (t *Task) Run(ctx context.Context, name string, f Func) (*Result, error) {
	sub := &Task{
		Name:       name,
		Host:       t.Host,
		Config:     t.Config,
		Logger:     t.Logger.With(zap.String("subtask", name)),
		state:      t.state,
		processors: t.processors,
	}
	mr := sub.execute(ctx, f)
	t.subResults = append(t.subResults, mr...)

	r := mr[0]
	if r.Failed {
		return r, r.Err
	}
	return r, nil
}

// Execute runs f as t, delivering the result of t followed by the results of any sub-tasks.
// A failure is recorded in the global failed host set.
func Execute(ctx context.Context, t *Task, f Func) MultiResult {
	t.processors.HostStarted(t)
	mr := t.execute(ctx, f)
	if mr.Failed() {
		t.state.AddFailedHost(t.Host.Name)
	}
	t.processors.HostCompleted(t, mr)
	return mr
}

func (t *Task) execute(ctx context.Context, f Func) MultiResult {
	var (
		r   *Result
		err error
	)
	if err = ctx.Err(); err == nil {
		r, err = t.call(ctx, f)
	}
	if r == nil {
		r = &Result{}
	}
	r.Host = t.Host
	r.Name = t.Name
	if err != nil {
		r.Failed = true
		r.Err = err
		t.Logger.Debug("task failed", zap.Error(err))
	}
	return append(MultiResult{r}, t.subResults...)
}

func (t *Task) call(ctx context.Context, f Func) (r *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r = nil
			err = errors.Errorf("task panicked: %v", p)
		}
	}()
	return f(ctx, t)
}
