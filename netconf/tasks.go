package netconf

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	ncclient "github.com/Juniper/go-netconf/netconf"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/damianoneill/netconf-tasks/task"
)

// Reply is the result of an operation that does not deliver data.
type Reply struct {
	// OK is set if the server replied with an ok element.
	OK bool `yaml:"ok"`
	// Content holds the body of the reply.
	Content string `yaml:"content,omitempty"`
}

// Connection delivers the netconf session for the task host, establishing it if necessary.
func Connection(ctx context.Context, t *task.Task) (Manager, error) {
	c, err := t.Host.GetConnection(ctx, ConnectionName, t.Config)
	if err != nil {
		return nil, err
	}
	m, ok := c.(Manager)
	if !ok {
		return nil, errors.Wrapf(ErrNotManager, "%T", c)
	}
	return m, nil
}

// Capabilities delivers the capabilities advertised by the host's netconf server, in the order
// advertised, as a []string.
func Capabilities(ctx context.Context, t *task.Task) (*task.Result, error) {
	m, err := Connection(ctx, t)
	if err != nil {
		return nil, err
	}
	advertised := m.ServerCapabilities()
	caps := make([]string, 0, len(advertised))
	caps = append(caps, advertised...)
	return task.NewResult(t.Host, caps), nil
}

// Session delivers the id of the host's netconf session.
func Session(ctx context.Context, t *task.Task) (*task.Result, error) {
	m, err := Connection(ctx, t)
	if err != nil {
		return nil, err
	}
	return task.NewResult(t.Host, m.SessionID()), nil
}

// Get delivers a task that issues a get request with an optional subtree filter, and delivers the
// content of the data element of the reply as a string.
// filter is either an xml string, or a value with xml tags; nil or an empty string requests all data.
func Get(filter interface{}) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		return getData(ctx, t, createGetRequest(filter))
	}
}

// GetConfig delivers a task that issues a get-config request against the source datastore, with an
// optional subtree filter, and delivers the content of the data element of the reply as a string.
func GetConfig(source string, filter interface{}) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		return getData(ctx, t, createGetConfigRequest(source, filter))
	}
}

// EditConfig delivers a task that applies cfg to the target datastore.
// cfg is either an xml string, used verbatim as the content of the config element, or a value with
// xml tags that will be marshalled as the child of the config element.
// When the task is run in dry-run mode the request carries the test-only test option, so that the
// server validates the change without applying it, and the result reports no change.
func EditConfig(target string, cfg interface{}, options ...EditOption) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		dryRun := t.IsDryRun(nil)
		opts := options
		if dryRun {
			opts = append(opts[:len(opts):len(opts)], TestOption(TestOnlyOpt))
		}
		reply, err := execute(ctx, t, createEditConfigRequest(target, cfg, opts...))
		if err != nil {
			return nil, err
		}
		r := task.NewResult(t.Host, newReply(reply))
		r.Changed = !dryRun
		return r, nil
	}
}

// Lock delivers a task that locks the target datastore.
func Lock(target string) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		return replyResult(ctx, t, createLockRequest(target))
	}
}

// Unlock delivers a task that unlocks the target datastore.
func Unlock(target string) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		return replyResult(ctx, t, createUnlockRequest(target))
	}
}

// Commit commits the candidate datastore to the running datastore.
func Commit(ctx context.Context, t *task.Task) (*task.Result, error) {
	r, err := replyResult(ctx, t, createCommitRequest())
	if err != nil {
		return nil, err
	}
	r.Changed = true
	return r, nil
}

// Discard reverts the candidate datastore to the running datastore.
func Discard(ctx context.Context, t *task.Task) (*task.Result, error) {
	return replyResult(ctx, t, createDiscardRequest())
}

// Validate delivers a task that validates the contents of the source datastore.
func Validate(source string) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		return replyResult(ctx, t, createValidateRequest(source))
	}
}

// ConfigureCandidate delivers a task that applies cfg to the candidate datastore under a lock, and
// then commits it; in dry-run mode the candidate changes are discarded instead of committed.
// Each step is reported as a sub-task result.
func ConfigureCandidate(cfg interface{}, options ...EditOption) task.Func {
	return func(ctx context.Context, t *task.Task) (*task.Result, error) {
		if _, err := t.Run(ctx, "lock", Lock(CandidateCfg)); err != nil {
			return nil, err
		}

		committed := false
		_, err := t.Run(ctx, "edit-config", EditConfig(CandidateCfg, cfg, options...))
		switch {
		case err != nil:
			_, _ = t.Run(ctx, "discard-changes", Discard)
		case t.IsDryRun(nil):
			_, err = t.Run(ctx, "discard-changes", Discard)
		default:
			_, err = t.Run(ctx, "commit", Commit)
			committed = err == nil
		}

		if _, uerr := t.Run(ctx, "unlock", Unlock(CandidateCfg)); err == nil {
			err = uerr
		}
		if err != nil {
			return nil, err
		}

		r := task.NewResult(t.Host, &Reply{OK: true})
		r.Changed = committed
		return r, nil
	}
}

func getData(ctx context.Context, t *task.Task, req interface{}) (*task.Result, error) {
	reply, err := execute(ctx, t, req)
	if err != nil {
		return nil, err
	}
	data := &Data{}
	if err := xml.Unmarshal([]byte(reply.Data), data); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty reply
			return task.NewResult(t.Host, ""), nil
		}
		return nil, errors.Wrap(err, "failed to decode reply data")
	}
	return task.NewResult(t.Host, data.Content), nil
}

func replyResult(ctx context.Context, t *task.Task, req interface{}) (*task.Result, error) {
	reply, err := execute(ctx, t, req)
	if err != nil {
		return nil, err
	}
	return task.NewResult(t.Host, newReply(reply)), nil
}

// execute sends req to the host's netconf server, delivering an error if the reply holds an
// rpc-error with error severity.
func execute(ctx context.Context, t *task.Task, req interface{}) (*ncclient.RPCReply, error) {
	m, err := Connection(ctx, t)
	if err != nil {
		return nil, err
	}
	rpc, err := method(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	t.Logger.Debug("executing rpc", zap.String("request", rpc.MarshalMethod()))
	reply, err := m.Exec(rpc)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, errors.New("no reply received")
	}
	for _, re := range reply.Errors {
		if re.Severity == "error" {
			return nil, errors.Errorf("netconf rpc [%s] '%s'", re.Severity, re.Message)
		}
		t.Logger.Warn("rpc warning", zap.String("tag", re.Tag), zap.String("message", re.Message))
	}
	return reply, nil
}

func newReply(reply *ncclient.RPCReply) *Reply {
	content := strings.TrimSpace(reply.Data)
	return &Reply{OK: hasOK(content), Content: content}
}

// hasOK reports whether the top level content of a reply includes an ok element.
func hasOK(content string) bool {
	dec := xml.NewDecoder(strings.NewReader(content))
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if depth == 0 && tok.Name.Local == "ok" {
				return true
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
}
