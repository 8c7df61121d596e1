package task

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/inventory"
)

// HostFunc delivers the results of running a task against a single host.
type HostFunc func(ctx context.Context, h *inventory.Host) MultiResult

// Runner dispatches a task across a set of hosts.
// Once ctx is done no further hosts are dispatched; each host not dispatched gets a single failed
// result holding the context error.
type Runner interface {
	Run(ctx context.Context, hosts []*inventory.Host, f HostFunc) map[string]MultiResult
}

// SerialRunner runs against one host at a time, in order.
type SerialRunner struct{}

// Run runs f against each host in turn.
func (SerialRunner) Run(ctx context.Context, hosts []*inventory.Host, f HostFunc) map[string]MultiResult {
	results := make(map[string]MultiResult, len(hosts))
	for _, h := range hosts {
		if err := ctx.Err(); err != nil {
			results[h.Name] = notStarted(h, err)
			continue
		}
		results[h.Name] = f(ctx, h)
	}
	return results
}

// ThreadedRunner runs against up to NumWorkers hosts concurrently.
type ThreadedRunner struct {
	NumWorkers int
}

// Run runs f against every host, returning once all hosts have completed.
func (r ThreadedRunner) Run(ctx context.Context, hosts []*inventory.Host, f HostFunc) map[string]MultiResult {
	var (
		mu      sync.Mutex
		results = make(map[string]MultiResult, len(hosts))
		g       errgroup.Group
	)
	workers := r.NumWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, h := range hosts {
		h := h
		// Go blocks while the pool is full, so a cancellation is seen by hosts still waiting for a worker.
		if err := ctx.Err(); err != nil {
			mu.Lock()
			results[h.Name] = notStarted(h, err)
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			mr := f(ctx, h)
			mu.Lock()
			results[h.Name] = mr
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func notStarted(h *inventory.Host, err error) MultiResult {
	return MultiResult{&Result{Host: h, Failed: true, Err: err}}
}

// NewRunner creates the runner defined by the runtime configuration.
func NewRunner(cfg config.Runner) Runner {
	if cfg.Plugin == config.SerialRunner {
		return SerialRunner{}
	}
	return ThreadedRunner{NumWorkers: cfg.NumWorkers}
}
