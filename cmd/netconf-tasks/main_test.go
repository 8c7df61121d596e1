package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	assert "github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/damianoneill/netconf-tasks/netconf/testserver"
	"github.com/damianoneill/netconf-tasks/task"
)

const inventoryDir = "../../testdata/inventory"

// writeHosts creates a hosts file holding a single arista host listening on port.
func writeHosts(t *testing.T, port int) string {
	t.Helper()
	hosts := fmt.Sprintf(`---
ceos:
  hostname: 127.0.0.1
  port: %d
  groups:
    - arista
`, port)
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(hosts), 0o600))
	return path
}

func unusedPort(t *testing.T) int {
	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	assert.NoError(t, l.Close())
	return port
}

func inventoryArgs(t *testing.T, port int, args ...string) []string {
	return append([]string{
		"--hosts-file", writeHosts(t, port),
		"--groups-file", filepath.Join(inventoryDir, "groups.yaml"),
		"--defaults-file", filepath.Join(inventoryDir, "defaults.yaml"),
		"--log-level", "error",
	}, args...)
}

func execute(t *testing.T, port int, args ...string) (*report, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCmd(out)
	cmd.SetArgs(inventoryArgs(t, port, args...))
	err := cmd.ExecuteContext(context.Background())
	if out.Len() == 0 {
		return nil, err
	}
	rep := &report{}
	assert.NoError(t, yaml.Unmarshal(out.Bytes(), rep), "Failed to parse output: %s", out)
	return rep, err
}

func TestCapabilitiesCommand(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t).WithCapabilities([]string{
		"urn:ietf:params:netconf:base:1.0",
		"urn:ietf:params:netconf:capability:candidate:1.0",
	})
	defer ts.Close()

	rep, err := execute(t, ts.Port(), "--filter", "vendor=arista", "capabilities")
	assert.NoError(t, err, "Not expecting command to fail")
	assert.Equal(t, "netconf_capabilities", rep.Task)
	assert.NotEmpty(t, rep.ID)
	assert.Len(t, rep.Hosts["ceos"], 1)

	r := rep.Hosts["ceos"][0]
	assert.False(t, r.Failed)
	assert.False(t, r.Changed)
	assert.Equal(t, []interface{}{
		"urn:ietf:params:netconf:base:1.0",
		"urn:ietf:params:netconf:capability:candidate:1.0",
	}, r.Result)
}

func TestCapabilitiesCommandHostFailure(t *testing.T) {
	rep, err := execute(t, unusedPort(t), "capabilities")
	assert.Error(t, err, "Expecting command to fail")
	assert.True(t, errors.Is(err, task.ErrHostFailed), "Expecting host failure: %v", err)

	assert.Len(t, rep.Hosts["ceos"], 1)
	assert.True(t, rep.Hosts["ceos"][0].Failed)
	assert.NotEmpty(t, rep.Hosts["ceos"][0].Exception)
}

func TestFilterMatchingNoHosts(t *testing.T) {
	rep, err := execute(t, unusedPort(t), "--filter", "vendor=cisco", "capabilities")
	assert.NoError(t, err)
	assert.Empty(t, rep.Hosts)
}

func TestGetConfigCommand(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t).
		WithRequestHandler(testserver.DataRequestHandler(`<system><hostname>ceos</hostname></system>`))
	defer ts.Close()

	rep, err := execute(t, ts.Port(), "get-config", "--source", "candidate", "--subtree", "<system/>")
	assert.NoError(t, err)
	assert.Equal(t, "<system><hostname>ceos</hostname></system>", rep.Hosts["ceos"][0].Result)
	assert.Contains(t, ts.LastHandler().LastReq().Operation.Body, "<source><candidate/></source>")
}

func TestEditConfigCommandDryRun(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t).WithRequestHandler(testserver.OKRequestHandler)
	defer ts.Close()

	cfg := filepath.Join(t.TempDir(), "config.xml")
	assert.NoError(t, os.WriteFile(cfg, []byte(`<system><hostname>lab</hostname></system>`), 0o600))

	rep, err := execute(t, ts.Port(), "--dry-run", "edit-config", "--config-file", cfg, "--default-operation", "merge")
	assert.NoError(t, err)
	assert.False(t, rep.Hosts["ceos"][0].Changed, "Not expecting dry-run to change the host")

	body := ts.LastHandler().LastReq().Operation.Body
	assert.Contains(t, body, "<test-option>test-only</test-option>")
	assert.Contains(t, body, "<default-operation>merge</default-operation>")
}

func TestEditConfigCommandMissingFile(t *testing.T) {
	_, err := execute(t, unusedPort(t), "edit-config", "--config-file", filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read configuration")
}

func TestCommitCommand(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t).WithRequestHandler(testserver.OKRequestHandler)
	defer ts.Close()

	rep, err := execute(t, ts.Port(), "commit")
	assert.NoError(t, err)
	assert.True(t, rep.Hosts["ceos"][0].Changed)
	assert.Equal(t, "commit", ts.LastHandler().LastReq().Operation.XMLName.Local)
}

func TestInvalidFlags(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
		msg  string
	}{
		{"filter", []string{"--filter", "vendor", "capabilities"}, "invalid filter"},
		{"workers", []string{"--workers", "0", "capabilities"}, "invalid workers"},
		{"log level", []string{"--log-level", "loud", "capabilities"}, "invalid log level"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cmd := newRootCmd(out)
			cmd.SetArgs(inventoryArgs(t, unusedPort(t), tc.args...))
			err := cmd.ExecuteContext(context.Background())
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
			assert.Zero(t, out.Len(), "Not expecting any output")
		})
	}
}
