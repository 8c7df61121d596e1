package testserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"sync"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// SSHHandler is the interface implemented by the handler of an SSH subsystem channel.
type SSHHandler interface {
	Handle(ch ssh.Channel)
}

// HandlerFactory delivers a handler for each new channel opened on the server.
type HandlerFactory func() SSHHandler

// SSHServer represents a test SSH Server
type SSHServer struct {
	listener net.Listener
	wg       sync.WaitGroup

	mu     sync.Mutex
	conns  []*ssh.ServerConn
	closed bool
}

// NewSSHServer delivers a new test SSH Server, listening on an ephemeral localhost port.
// The server implements password authentication with the given credentials, and invokes a handler
// created by factory for every channel that requests the netconf subsystem.
func NewSSHServer(t assert.TestingT, uname, password string, factory HandlerFactory) *SSHServer {
	listener, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err, "Listen failed")

	ts := &SSHServer{listener: listener}
	config := newSSHServerConfig(t, uname, password)

	ts.wg.Add(1)
	go ts.acceptConnections(t, config, factory)

	return ts
}

// Port delivers the tcp port number on which the server is listening.
func (ts *SSHServer) Port() int {
	return ts.listener.Addr().(*net.TCPAddr).Port
}

// Close closes the listener and any active connections, waiting for connection handlers to complete.
func (ts *SSHServer) Close() {
	// nolint: gosec, errcheck
	ts.listener.Close()

	ts.mu.Lock()
	ts.closed = true
	for _, c := range ts.conns {
		c.Close() // nolint: gosec, errcheck
	}
	ts.conns = nil
	ts.mu.Unlock()

	ts.wg.Wait()
}

func (ts *SSHServer) acceptConnections(t assert.TestingT, config *ssh.ServerConfig, factory HandlerFactory) {
	defer ts.wg.Done()
	for {
		nConn, err := ts.listener.Accept()
		if err != nil {
			return
		}
		ts.wg.Add(1)
		go ts.serveConnection(t, nConn, config, factory)
	}
}

func (ts *SSHServer) serveConnection(t assert.TestingT, nConn net.Conn, config *ssh.ServerConfig, factory HandlerFactory) {
	defer ts.wg.Done()

	sConn, chch, reqch, err := ssh.NewServerConn(nConn, config)
	if err != nil {
		nConn.Close() // nolint: gosec, errcheck
		return
	}
	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		sConn.Close() // nolint: gosec, errcheck
	} else {
		ts.conns = append(ts.conns, sConn)
		ts.mu.Unlock()
	}

	go ssh.DiscardRequests(reqch)

	// Service the incoming Channel channel.
	var chwg sync.WaitGroup
	for newChannel := range chch {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		dataChan, requests, err := newChannel.Accept()
		if err != nil {
			t.Errorf("Failed to accept new channel: %v", err)
			continue
		}

		subsys := make(chan bool, 1)
		chwg.Add(1)
		go func(in <-chan *ssh.Request) {
			defer chwg.Done()
			sent := false
			for req := range in {
				ok := req.Type == "subsystem" && isNetconfSubsystem(req.Payload)
				if req.WantReply {
					_ = req.Reply(ok, nil)
				}
				if ok && !sent {
					subsys <- true
					sent = true
				}
			}
			if !sent {
				subsys <- false
			}
		}(requests)

		chwg.Add(1)
		go func() {
			defer chwg.Done()
			defer dataChan.Close() // nolint: gosec, errcheck
			if <-subsys {
				factory().Handle(dataChan)
			}
		}()
	}
	chwg.Wait()
}

// isNetconfSubsystem reports whether an ssh subsystem request payload names the netconf subsystem.
func isNetconfSubsystem(payload []byte) bool {
	var msg struct{ Name string }
	if err := ssh.Unmarshal(payload, &msg); err != nil {
		return false
	}
	return msg.Name == "netconf"
}

func newSSHServerConfig(t assert.TestingT, uname, password string) *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == uname && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}

	config.AddHostKey(generateHostKey(t))
	return config
}

func generateHostKey(t assert.TestingT) ssh.Signer {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err == nil {
		var hostkey ssh.Signer
		if hostkey, err = ssh.NewSignerFromKey(key); err == nil {
			return hostkey
		}
	}
	t.Errorf("Failed to generate host key: %v", err)
	return nil
}
