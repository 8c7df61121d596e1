package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/connection"
	"github.com/damianoneill/netconf-tasks/inventory"
	"github.com/damianoneill/netconf-tasks/task"
)

func testConfig(opts ...config.Option) *config.Config {
	opts = append([]config.Option{config.WithInventory(
		"../testdata/inventory/hosts.yaml",
		"../testdata/inventory/groups.yaml",
		"../testdata/inventory/defaults.yaml",
	)}, opts...)
	return config.New(opts...)
}

type stubConnection struct {
	closed bool
}

func (s *stubConnection) Close() error {
	s.closed = true
	return nil
}

func stubRegistry(conns map[string]*stubConnection) *connection.Registry {
	r := connection.NewRegistry()
	r.Register("stub", func(ctx context.Context, params connection.Parameters, cfg *config.Config) (connection.Connection, error) {
		if params.Name == "iosxr" {
			return nil, errors.New("connection refused")
		}
		c := &stubConnection{}
		conns[params.Name] = c
		return c, nil
	})
	return r
}

func connect(ctx context.Context, t *task.Task) (*task.Result, error) {
	if _, err := t.Host.GetConnection(ctx, "stub", t.Config); err != nil {
		return nil, err
	}
	return task.NewResult(t.Host, t.Host.Platform()), nil
}

func TestInit(t *testing.T) {
	nr, err := Init(testConfig())
	assert.NoError(t, err, "Not expecting init to fail")
	assert.Equal(t, 2, nr.Inventory.Len())
	assert.IsType(t, task.ThreadedRunner{}, nr.Runner)

	_, err = Init(config.New(config.WithInventory("missing.yaml", "", "")))
	assert.Error(t, err, "Expecting init to fail with a missing inventory")
}

func TestRun(t *testing.T) {
	conns := map[string]*stubConnection{}
	nr, err := Init(testConfig(), WithRegistry(stubRegistry(conns)))
	assert.NoError(t, err)

	ar, err := nr.Run(context.Background(), "connect", connect)
	assert.NoError(t, err, "Not expecting run to fail without raise on error")
	assert.NotEmpty(t, ar.ID)
	assert.Equal(t, "connect", ar.Name)
	assert.True(t, ar.Failed())
	assert.False(t, ar.Host("ceos").Failed())
	assert.Equal(t, "eos", ar.Host("ceos")[0].Result)
	assert.EqualError(t, ar.Host("iosxr")[0].Err, "connection refused")
	assert.Equal(t, []string{"iosxr"}, nr.Data.FailedHosts())

	// Failed hosts are skipped by subsequent runs unless requested.
	ar, err = nr.Run(context.Background(), "connect", connect)
	assert.NoError(t, err)
	assert.Equal(t, []string{"ceos"}, ar.Hosts())

	ar, err = nr.Run(context.Background(), "connect", connect, OnFailed())
	assert.NoError(t, err)
	assert.Equal(t, []string{"ceos", "iosxr"}, ar.Hosts())

	assert.NoError(t, nr.Close(context.Background()))
	assert.True(t, conns["ceos"].closed)
}

func TestRunCancelled(t *testing.T) {
	conns := map[string]*stubConnection{}
	rec := &countingProcessor{}
	nr, err := Init(testConfig(), WithRegistry(stubRegistry(conns)), WithProcessors(rec))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ar, err := nr.Run(ctx, "connect", connect)
	assert.NoError(t, err)
	assert.Equal(t, []string{"ceos", "iosxr"}, ar.Hosts())
	for _, h := range ar.Hosts() {
		assert.Equal(t, "connect", ar.Host(h)[0].Name)
		assert.True(t, errors.Is(ar.Host(h)[0].Err, context.Canceled))
	}
	assert.Equal(t, []string{"ceos", "iosxr"}, nr.Data.FailedHosts())
	assert.Zero(t, rec.hosts, "Hosts should not be started once cancelled")
	assert.Empty(t, conns)

	nr.Data.ResetFailedHosts()
	ar, err = nr.Run(context.Background(), "connect", connect)
	assert.NoError(t, err)
	assert.Equal(t, 2, ar.Len(), "Reset hosts should be run again")
}

func TestRunRaiseOnError(t *testing.T) {
	conns := map[string]*stubConnection{}
	nr, err := Init(testConfig(config.WithRaiseOnError(), config.WithSerialRunner()), WithRegistry(stubRegistry(conns)))
	assert.NoError(t, err)
	assert.IsType(t, task.SerialRunner{}, nr.Runner)

	ar, err := nr.Run(context.Background(), "connect", connect)
	assert.Error(t, err, "Expecting run to fail")
	assert.True(t, errors.Is(err, task.ErrHostFailed))
	assert.NotNil(t, ar, "Expecting results to be delivered with the error")
}

func TestFilter(t *testing.T) {
	conns := map[string]*stubConnection{}
	nr, err := Init(testConfig(), WithRegistry(stubRegistry(conns)))
	assert.NoError(t, err)

	arista := nr.FilterBy("vendor", "arista")
	assert.Equal(t, 1, arista.Inventory.Len())
	assert.Same(t, nr.Data, arista.Data, "Filtered Nornir should share state")

	ar, err := arista.Run(context.Background(), "connect", connect)
	assert.NoError(t, err)
	assert.False(t, ar.Failed())
	assert.Equal(t, 1, ar.Len())

	cisco, err := nr.FilterByExpr("platform=iosxr")
	assert.NoError(t, err)
	assert.NotNil(t, cisco.Inventory.Host("iosxr"))

	_, err = nr.FilterByExpr("platform")
	assert.Error(t, err, "Expecting invalid expression to be rejected")

	assert.Equal(t, 2, nr.Filter(inventory.InGroup("network")).Inventory.Len())
}

func TestWithOptions(t *testing.T) {
	rec := &countingProcessor{}
	nr := New(inventory.New(nil, nil, nil), nil, WithRunner(task.SerialRunner{}), WithProcessors(rec))

	ar, err := nr.Run(context.Background(), "noop", connect)
	assert.NoError(t, err)
	assert.Equal(t, 0, ar.Len())
	assert.Equal(t, 2, rec.calls)
}

type countingProcessor struct {
	calls int
	hosts int32
}

func (c *countingProcessor) TaskStarted(name, runID string)                       { c.calls++ }
func (c *countingProcessor) TaskCompleted(name string, ar *task.AggregatedResult) { c.calls++ }
func (c *countingProcessor) HostStarted(t *task.Task)                             { atomic.AddInt32(&c.hosts, 1) }
func (c *countingProcessor) HostCompleted(t *task.Task, mr task.MultiResult)      {}
