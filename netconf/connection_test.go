package netconf

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/connection"
	"github.com/damianoneill/netconf-tasks/netconf/testserver"
)

func TestRegistered(t *testing.T) {
	assert.Contains(t, connection.DefaultRegistry.Names(), ConnectionName)
}

func TestClientConfigDefaults(t *testing.T) {
	cfg, err := clientConfig(connection.Parameters{Username: "admin", Password: "secret"}, config.New())
	assert.NoError(t, err)
	assert.Equal(t, "admin", cfg.User)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Len(t, cfg.Auth, 1, "Expecting password authentication")
	assert.NotNil(t, cfg.HostKeyCallback)
}

func TestClientConfigNoPassword(t *testing.T) {
	cfg, err := clientConfig(connection.Parameters{Username: "admin"}, nil)
	assert.NoError(t, err)
	assert.Empty(t, cfg.Auth)
}

func TestDurationExtra(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    time.Duration
		wantErr bool
	}{
		{"Missing", nil, DefaultTimeout, false},
		{"Int", 10, 10 * time.Second, false},
		{"Float", 1.5, 1500 * time.Millisecond, false},
		{"NumericString", "5", 5 * time.Second, false},
		{"DurationString", "1m30s", 90 * time.Second, false},
		{"InvalidString", "soon", 0, true},
		{"InvalidType", []int{1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extras := map[string]interface{}{}
			if tt.value != nil {
				extras[TimeoutKey] = tt.value
			}
			got, err := durationExtra(extras, TimeoutKey, DefaultTimeout)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoolExtra(t *testing.T) {
	assert.True(t, boolExtra(map[string]interface{}{HostkeyVerifyKey: true}, HostkeyVerifyKey))
	assert.False(t, boolExtra(map[string]interface{}{HostkeyVerifyKey: "yes"}, HostkeyVerifyKey))
	assert.True(t, boolExtra(map[string]interface{}{HostkeyVerifyKey: "true"}, HostkeyVerifyKey))
	assert.False(t, boolExtra(map[string]interface{}{}, HostkeyVerifyKey))
	assert.False(t, boolExtra(nil, HostkeyVerifyKey))
}

func writeKey(t *testing.T, dir string) string {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(key, "")
	assert.NoError(t, err)
	path := filepath.Join(dir, "id_ed25519")
	assert.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestClientConfigKeyFile(t *testing.T) {
	path := writeKey(t, t.TempDir())

	cfg, err := clientConfig(connection.Parameters{
		Username: "admin",
		Password: "secret",
		Extras:   map[string]interface{}{KeyFilenameKey: path},
	}, nil)
	assert.NoError(t, err)
	assert.Len(t, cfg.Auth, 2, "Expecting public key and password authentication")

	_, err = clientConfig(connection.Parameters{Extras: map[string]interface{}{KeyFilenameKey: path + ".missing"}}, nil)
	assert.Error(t, err, "Expecting missing key file to fail")
}

func TestClientConfigHostkeyVerify(t *testing.T) {
	dir := t.TempDir()
	knownHosts := filepath.Join(dir, "known_hosts")
	assert.NoError(t, os.WriteFile(knownHosts, nil, 0o600))

	cfg := config.New()
	cfg.SSH.KnownHostsFile = knownHosts
	params := connection.Parameters{Extras: map[string]interface{}{HostkeyVerifyKey: true}}

	_, err := clientConfig(params, cfg)
	assert.NoError(t, err)

	cfg.SSH.KnownHostsFile = filepath.Join(dir, "missing")
	_, err = clientConfig(params, cfg)
	assert.Error(t, err, "Expecting missing known hosts file to fail")
}

func TestOpenHostkeyVerifyRejectsUnknownHost(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	defer ts.Close()

	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	assert.NoError(t, os.WriteFile(knownHosts, nil, 0o600))
	cfg := config.New()
	cfg.SSH.KnownHostsFile = knownHosts

	_, err := Open(context.Background(), connection.Parameters{
		Hostname: "localhost",
		Port:     ts.Port(),
		Username: testserver.TestUserName,
		Password: testserver.TestPassword,
		Extras:   map[string]interface{}{HostkeyVerifyKey: true},
	}, cfg)
	assert.Error(t, err, "Expecting unknown host key to be rejected")
}

func TestOpen(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	defer ts.Close()

	c, err := Open(context.Background(), connection.Parameters{
		Hostname: "localhost",
		Port:     ts.Port(),
		Username: testserver.TestUserName,
		Password: testserver.TestPassword,
		Extras:   map[string]interface{}{TimeoutKey: 5},
	}, config.New())
	assert.NoError(t, err, "Not expecting open to fail")

	m, ok := c.(Manager)
	assert.True(t, ok, "Expecting connection to be a netconf manager")
	assert.Equal(t, testserver.DefaultCapabilities, m.ServerCapabilities())
	assert.Equal(t, 1, m.SessionID())
	_ = m.Close()
}

func TestOpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, connection.Parameters{Hostname: "localhost", Port: 1}, config.New())
	assert.Equal(t, context.Canceled, err)
}
