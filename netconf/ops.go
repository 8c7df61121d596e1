package netconf

import (
	"encoding/xml"
	"strings"

	ncclient "github.com/Juniper/go-netconf/netconf"
)

// Datastore names.
const (
	RunningCfg   = "running"
	CandidateCfg = "candidate"
	StartupCfg   = "startup"
)

// Values of the edit-config error-option.
const (
	StopOnErrorErrOpt     = "stop-on-error"
	ContinueOnErrorErrOpt = "continue-on-error"
	RollbackOnErrorErrOpt = "rollback-on-error"
)

// Values of the edit-config default-operation.
const (
	MergeOp   = "merge"
	ReplaceOp = "replace"
	NoneOp    = "none"
)

// Values of the edit-config test-option.
const (
	TestThenSetOpt = "test-then-set"
	SetOpt         = "set"
	TestOnlyOpt    = "test-only"
)

// Data is the data element of a get or get-config reply; Content holds its raw children.
type Data struct {
	XMLName xml.Name `xml:"data"`
	Content string   `xml:",innerxml"`
}

// Union carries the content of a filter or config element. A string is written verbatim as xml,
// anything else is marshalled as a child element using its xml tags.
type Union struct {
	ValueStr interface{}
	ValueXML string `xml:",innerxml"`
}

func newUnion(v interface{}) *Union {
	if s, ok := v.(string); ok {
		return &Union{ValueXML: s}
	}
	return &Union{ValueStr: v}
}

// Filter is a subtree filter element.
type Filter struct {
	XMLName xml.Name `xml:"filter"`
	Type    string   `xml:"type,attr"`
	*Union
}

// Config is the config element of an edit-config request.
type Config struct {
	XMLName xml.Name `xml:"config"`
	*Union
}

// datastoreRef names a datastore as an empty element, e.g. <running/>.
type datastoreRef struct {
	Name string `xml:",innerxml"`
}

// GetReq is a get request.
type GetReq struct {
	XMLName xml.Name `xml:"get"`
	Filter  *Filter
}

// GetConfigReq is a get-config request.
type GetConfigReq struct {
	XMLName xml.Name      `xml:"get-config"`
	Source  *datastoreRef `xml:"source"`
	Filter  *Filter
}

// EditConfigReq is an edit-config request; its options are set with EditOption values.
type EditConfigReq struct {
	XMLName          xml.Name      `xml:"edit-config"`
	Target           *datastoreRef `xml:"target"`
	DefaultOperation string        `xml:"default-operation,omitempty"`
	TestOption       string        `xml:"test-option,omitempty"`
	ErrorOption      string        `xml:"error-option,omitempty"`
	Config           *Config
}

// LockReq is a lock request.
type LockReq struct {
	XMLName xml.Name      `xml:"lock"`
	Target  *datastoreRef `xml:"target"`
}

// UnlockReq is an unlock request.
type UnlockReq struct {
	XMLName xml.Name      `xml:"unlock"`
	Target  *datastoreRef `xml:"target"`
}

// CommitReq is a commit request.
type CommitReq struct {
	XMLName xml.Name `xml:"commit"`
}

// DiscardReq is a discard-changes request.
type DiscardReq struct {
	XMLName xml.Name `xml:"discard-changes"`
}

// ValidateReq is a validate request.
type ValidateReq struct {
	XMLName xml.Name      `xml:"validate"`
	Source  *datastoreRef `xml:"source"`
}

// EditOption configures an edit config operation.
type EditOption func(*EditConfigReq)

// DefaultOperation defines the default-operation of an edit config request.
func DefaultOperation(oper string) EditOption {
	return func(req *EditConfigReq) {
		req.DefaultOperation = oper
	}
}

// TestOption defines the test-option of an edit config request.
func TestOption(opt string) EditOption {
	return func(req *EditConfigReq) {
		req.TestOption = opt
	}
}

// ErrorOption defines the error-option of an edit config request.
func ErrorOption(opt string) EditOption {
	return func(req *EditConfigReq) {
		req.ErrorOption = opt
	}
}

func (r *EditConfigReq) applyOpts(options ...EditOption) {
	for _, opt := range options {
		opt(r)
	}
}

// datastore is written as raw xml since encoding/xml never emits self-closing elements.
func datastore(name string) *datastoreRef {
	return &datastoreRef{Name: "<" + name + "/>"}
}

func subtreeFilter(s interface{}) *Filter {
	if s == nil {
		return nil
	}
	if str, ok := s.(string); ok && strings.TrimSpace(str) == "" {
		return nil
	}
	return &Filter{Type: "subtree", Union: newUnion(s)}
}

func createGetRequest(filter interface{}) *GetReq {
	return &GetReq{Filter: subtreeFilter(filter)}
}

func createGetConfigRequest(source string, filter interface{}) *GetConfigReq {
	return &GetConfigReq{Source: datastore(source), Filter: subtreeFilter(filter)}
}

func createEditConfigRequest(target string, cfg interface{}, options ...EditOption) *EditConfigReq {
	req := &EditConfigReq{Target: datastore(target), Config: &Config{Union: newUnion(cfg)}}
	req.applyOpts(options...)
	return req
}

func createLockRequest(target string) *LockReq {
	return &LockReq{Target: datastore(target)}
}

func createUnlockRequest(target string) *UnlockReq {
	return &UnlockReq{Target: datastore(target)}
}

func createCommitRequest() *CommitReq {
	return &CommitReq{}
}

func createDiscardRequest() *DiscardReq {
	return &DiscardReq{}
}

func createValidateRequest(source string) *ValidateReq {
	return &ValidateReq{Source: datastore(source)}
}

// method delivers the xml encoding of a request as a method that can be executed by a session.
func method(req interface{}) (ncclient.RPCMethod, error) {
	b, err := xml.Marshal(req)
	if err != nil {
		return nil, err
	}
	return ncclient.RawMethod(b), nil
}
