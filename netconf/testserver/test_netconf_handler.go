package testserver

import (
	"encoding/xml"
	"sync"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// HelloMessage defines the message sent by either side of a netconf session to advertise capabilities.
type HelloMessage struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// RPCRequest represents an RPC request from a client, where the element type of the operation is unknown.
type RPCRequest struct {
	XMLName   xml.Name
	MessageID string    `xml:"message-id,attr"`
	Operation Operation `xml:",any"`
}

// Operation is the operation element of a request.
type Operation struct {
	XMLName xml.Name
	Body    string `xml:",innerxml"`
}

// RPCError defines an rpc-error element of a reply.
type RPCError struct {
	Type     string `xml:"error-type"`
	Tag      string `xml:"error-tag"`
	Severity string `xml:"error-severity"`
	Path     string `xml:"error-path,omitempty"`
	Message  string `xml:"error-message"`
}

// RPCReplyMessage represents an rpc-reply message that will be sent to a client session, where the
// content of the data element is unknown.
type RPCReplyMessage struct {
	XMLName   xml.Name   `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID string     `xml:"message-id,attr"`
	Errors    []RPCError `xml:"rpc-error,omitempty"`
	Data      *ReplyData `xml:"data,omitempty"`
	OK        *struct{}  `xml:"ok,omitempty"`
}

// ReplyData holds the content of a reply data element.
type ReplyData struct {
	Content string `xml:",innerxml"`
}

// RequestHandler is a function type that will be invoked by the session handler to handle an RPC
// request.
type RequestHandler func(h *SessionHandler, req *RPCRequest)

// EchoRequestHandler responds to a request with a reply containing a data element holding
// the body of the request.
var EchoRequestHandler = func(h *SessionHandler, req *RPCRequest) {
	h.Reply(&RPCReplyMessage{MessageID: req.MessageID, Data: &ReplyData{Content: req.Operation.Body}})
}

// OKRequestHandler responds to a request with an ok reply.
var OKRequestHandler = func(h *SessionHandler, req *RPCRequest) {
	h.Reply(&RPCReplyMessage{MessageID: req.MessageID, OK: &struct{}{}})
}

// FailingRequestHandler replies to a request with an error.
var FailingRequestHandler = func(h *SessionHandler, req *RPCRequest) {
	h.Reply(&RPCReplyMessage{
		MessageID: req.MessageID,
		Errors: []RPCError{
			{Type: "application", Tag: "operation-failed", Severity: "error", Message: "oops"},
		},
	})
}

// CloseRequestHandler closes the transport channel on request receipt.
var CloseRequestHandler = func(h *SessionHandler, req *RPCRequest) {
	h.Close()
}

// IgnoreRequestHandler does nothing on receipt of a request.
var IgnoreRequestHandler = func(h *SessionHandler, req *RPCRequest) {}

// DataRequestHandler delivers a handler that replies to a request with a data element holding content.
func DataRequestHandler(content string) RequestHandler {
	return func(h *SessionHandler, req *RPCRequest) {
		h.Reply(&RPCReplyMessage{MessageID: req.MessageID, Data: &ReplyData{Content: content}})
	}
}

// SessionHandler represents the server side of an active netconf SSH session.
type SessionHandler struct {
	// t is the testing context used for handling unexpected errors.
	t assert.TestingT

	// ch is the underlying transport connection.
	ch  ssh.Channel
	enc *encoder

	// The capabilities advertised to the client.
	capabilities []string
	// The session id reported to the client.
	sid uint64

	// The queue of handlers used to process incoming client requests.
	// If the queue is empty, a request is processed by the EchoRequestHandler.
	reqHandlers []RequestHandler

	mu          sync.Mutex
	clientHello *HelloMessage
	reqs        []*RPCRequest
}

func newSessionHandler(t assert.TestingT, sid uint64, caps []string, handlers []RequestHandler) *SessionHandler {
	return &SessionHandler{
		t:            t,
		sid:          sid,
		capabilities: caps,
		reqHandlers:  append([]RequestHandler(nil), handlers...),
	}
}

// Handle runs a netconf server session on a newly-connected SSH channel, returning when the client
// disconnects or the channel is closed.
func (h *SessionHandler) Handle(ch ssh.Channel) {
	h.mu.Lock()
	h.ch = ch
	h.mu.Unlock()
	h.enc = &encoder{w: ch}

	// The server hello is sent without waiting for the client.
	err := h.enc.encode(&HelloMessage{Capabilities: h.capabilities, SessionID: h.sid})
	if err != nil {
		h.t.Errorf("Failed to send server hello: %v", err)
		return
	}

	dec := newDecoder(ch)
	for dec.Scan() {
		h.handleMessage(dec.Bytes())
	}
}

// Reply sends a reply message to the client.
func (h *SessionHandler) Reply(reply *RPCReplyMessage) {
	if err := h.enc.encode(reply); err != nil {
		h.t.Errorf("Failed to encode response: %v", err)
	}
}

// Close initiates session tear-down by closing the underlying transport channel.
func (h *SessionHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ch != nil {
		h.ch.Close() // nolint: errcheck, gosec
	}
}

// ClientHello delivers the hello message sent by the client, or nil if none has been received.
func (h *SessionHandler) ClientHello() *HelloMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientHello
}

// ReqCount delivers the number of requests received by the session.
func (h *SessionHandler) ReqCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.reqs)
}

// LastReq delivers the most recent request received by the session, or nil if none has been received.
func (h *SessionHandler) LastReq() *RPCRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.reqs) == 0 {
		return nil
	}
	return h.reqs[len(h.reqs)-1]
}

// Requests delivers the requests received by the session, in order of receipt.
func (h *SessionHandler) Requests() []*RPCRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*RPCRequest(nil), h.reqs...)
}

func (h *SessionHandler) handleMessage(msg []byte) {
	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(msg, &root); err != nil {
		h.t.Errorf("Failed to decode message: %v", err)
		return
	}

	switch root.XMLName.Local {
	case "hello":
		hello := &HelloMessage{}
		if err := xml.Unmarshal(msg, hello); err != nil {
			h.t.Errorf("Failed to decode client hello: %v", err)
			return
		}
		h.mu.Lock()
		h.clientHello = hello
		h.mu.Unlock()

	case "rpc":
		req := &RPCRequest{}
		if err := xml.Unmarshal(msg, req); err != nil {
			h.t.Errorf("Failed to decode request: %v", err)
			return
		}
		h.mu.Lock()
		h.reqs = append(h.reqs, req)
		h.mu.Unlock()
		h.nextReqHandler()(h, req)
	}
}

func (h *SessionHandler) nextReqHandler() (reqh RequestHandler) {
	if len(h.reqHandlers) == 0 {
		return EchoRequestHandler
	}
	h.reqHandlers, reqh = h.reqHandlers[1:], h.reqHandlers[0]
	return
}
