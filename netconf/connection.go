// Package netconf provides tasks that run NETCONF operations against inventory hosts, and the
// "netconf" connection plugin that establishes the sessions they use.
package netconf

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ncclient "github.com/Juniper/go-netconf/netconf"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/connection"
)

// ConnectionName is the name under which the netconf connection plugin is registered.
const ConnectionName = "netconf"

// Defaults applied to connection parameters that are not defined by the inventory.
const (
	DefaultPort    = 830
	DefaultTimeout = 30 * time.Second
)

// Extras keys understood by the connection plugin.
const (
	TimeoutKey       = "timeout"
	HostkeyVerifyKey = "hostkey_verify"
	KeyFilenameKey   = "key_filename"
	PassphraseKey    = "passphrase"
)

// ErrNotManager is returned when the connection registered under ConnectionName does not
// implement Manager.
var ErrNotManager = errors.New("connection is not a netconf manager")

//go:generate mockgen -destination=mocks/manager.go -package=mocks github.com/damianoneill/netconf-tasks/netconf Manager

// Manager is the view of an established NETCONF session used by the tasks in this package.
type Manager interface {
	// ServerCapabilities delivers the capabilities advertised by the server, in the order advertised.
	ServerCapabilities() []string
	// SessionID delivers the session id assigned by the server.
	SessionID() int
	// Exec executes the supplied methods in a single rpc, returning the reply.
	Exec(methods ...ncclient.RPCMethod) (*ncclient.RPCReply, error)
	// Close closes the session.
	Close() error
}

type manager struct {
	s *ncclient.Session
}

func (m *manager) ServerCapabilities() []string {
	return m.s.ServerCapabilities
}

func (m *manager) SessionID() int {
	return m.s.SessionID
}

func (m *manager) Exec(methods ...ncclient.RPCMethod) (*ncclient.RPCReply, error) {
	return m.s.Exec(methods...)
}

func (m *manager) Close() error {
	return m.s.Close()
}

func init() {
	connection.Register(ConnectionName, Open)
}

// Open establishes a NETCONF session over SSH to the host defined by params.
// It implements connection.Factory.
func Open(ctx context.Context, params connection.Parameters, cfg *config.Config) (connection.Connection, error) {
	sshConfig, err := clientConfig(params, cfg)
	if err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	port := params.Port
	if port == 0 {
		port = DefaultPort
	}
	target := net.JoinHostPort(params.Hostname, strconv.Itoa(port))

	s, err := ncclient.DialSSH(target, sshConfig)
	if err != nil {
		return nil, err
	}
	return &manager{s: s}, nil
}

func clientConfig(params connection.Parameters, cfg *config.Config) (*ssh.ClientConfig, error) {
	timeout, err := durationExtra(params.Extras, TimeoutKey, DefaultTimeout)
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            params.Username,
		Timeout:         timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // nolint: gosec
	}

	if keyFile, ok := params.Extras[KeyFilenameKey].(string); ok && keyFile != "" {
		signer, err := loadKey(keyFile, stringExtra(params.Extras, PassphraseKey))
		if err != nil {
			return nil, err
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if params.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(params.Password))
	}

	if boolExtra(params.Extras, HostkeyVerifyKey) {
		file := ""
		if cfg != nil {
			file = cfg.SSH.KnownHostsFile
		}
		if sshConfig.HostKeyCallback, err = knownHostsCallback(file); err != nil {
			return nil, err
		}
	}
	return sshConfig, nil
}

func loadKey(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read private key")
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	return signer, errors.Wrapf(err, "failed to parse private key %s", path)
}

func knownHostsCallback(file string) (ssh.HostKeyCallback, error) {
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to locate known hosts file")
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(expandHome(file))
	return cb, errors.Wrap(err, "failed to load known hosts")
}

func expandHome(path string) string {
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func stringExtra(extras map[string]interface{}, key string) string {
	if v, ok := extras[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func boolExtra(extras map[string]interface{}, key string) bool {
	switch v := extras[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// durationExtra interprets a numeric extra as seconds, or a string extra as either seconds or a
// duration such as "1m30s".
func durationExtra(extras map[string]interface{}, key string, def time.Duration) (time.Duration, error) {
	v, ok := extras[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case string:
		if secs, err := strconv.ParseFloat(t, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(t)
		return d, errors.Wrapf(err, "invalid %s %q", key, t)
	default:
		return 0, errors.Errorf("invalid %s %v", key, v)
	}
}
