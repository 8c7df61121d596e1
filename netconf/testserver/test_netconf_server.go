// Package testserver provides an in-process netconf server, reached over SSH, for use in tests.
package testserver

import (
	"fmt"
	"runtime"
	"sync"

	assert "github.com/stretchr/testify/require"
)

// Defines credentials used for test sessions.
const (
	TestUserName = "testUser"
	TestPassword = "testPassword"
)

// DefaultCapabilities are advertised by the server unless overridden by WithCapabilities.
var DefaultCapabilities = []string{
	"urn:ietf:params:netconf:base:1.0",
}

// TestNCServer represents a Netconf Server that can be used for 'on-board' testing.
// It encapsulates a transport connection to an SSH server, and a netconf session handler that will
// be invoked to handle netconf messages.
type TestNCServer struct {
	*SSHServer

	mu              sync.Mutex
	sessionHandlers map[uint64]*SessionHandler
	reqHandlers     []RequestHandler
	caps            []string
	nextSid         uint64
	tctx            assert.TestingT
}

// NewTestNetconfServer creates a new TestNCServer that will accept Netconf localhost connections on an ephemeral port (available
// via Port()), with credentials defined by TestUserName and TestPassword.
// tctx will be used for handling failures; if the supplied value is nil, a default test context will be used.
// The behaviour of the Netconf session handler can be configured using the WithCapabilities and
// WithRequestHandler methods.
func NewTestNetconfServer(tctx assert.TestingT) *TestNCServer {
	ncs := &TestNCServer{
		sessionHandlers: make(map[uint64]*SessionHandler),
		caps:            DefaultCapabilities,
	}

	if tctx == nil {
		// Default test context to built-in implementation.
		tctx = ncs
	}
	ncs.tctx = tctx

	ncs.SSHServer = NewSSHServer(tctx, TestUserName, TestPassword, ncs.newHandler)

	return ncs
}

func (ncs *TestNCServer) newHandler() SSHHandler {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()

	ncs.nextSid++
	sess := newSessionHandler(ncs.tctx, ncs.nextSid, ncs.caps, ncs.reqHandlers)
	ncs.sessionHandlers[ncs.nextSid] = sess
	return sess
}

// WithRequestHandler adds a request handler to the netconf session.
func (ncs *TestNCServer) WithRequestHandler(rh RequestHandler) *TestNCServer {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	ncs.reqHandlers = append(ncs.reqHandlers, rh)
	return ncs
}

// WithCapabilities define the capabilities that the server will advertise when a netconf client connects.
func (ncs *TestNCServer) WithCapabilities(caps []string) *TestNCServer {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	ncs.caps = caps
	return ncs
}

// LastHandler delivers the handler of the most recently established session, or nil if no session has
// been established.
func (ncs *TestNCServer) LastHandler() *SessionHandler {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	return ncs.sessionHandlers[ncs.nextSid]
}

// SessionHandler delivers the netconf session handler associated with the specified session id.
func (ncs *TestNCServer) SessionHandler(id uint64) *SessionHandler {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	sh, ok := ncs.sessionHandlers[id]
	if !ok {
		ncs.tctx.Errorf("Failed to get handler for session %d", id)
		ncs.tctx.FailNow()
	}
	return sh
}

// SessionCount delivers the number of sessions established with the server.
func (ncs *TestNCServer) SessionCount() int {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	return int(ncs.nextSid)
}

// Close closes any active transport to the test server and prevents subsequent connections.
func (ncs *TestNCServer) Close() {
	ncs.mu.Lock()
	handlers := make([]*SessionHandler, 0, len(ncs.sessionHandlers))
	for _, h := range ncs.sessionHandlers {
		handlers = append(handlers, h)
	}
	ncs.mu.Unlock()

	for _, h := range handlers {
		h.Close()
	}
	ncs.SSHServer.Close()
}

// Errorf provides testing.T compatibility if a test context is not provided when the test server is
// created.
func (ncs *TestNCServer) Errorf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// FailNow provides testing.T compatibility if a test context is not provided when the test server is
// created.
func (ncs *TestNCServer) FailNow() {
	runtime.Goexit()
}
