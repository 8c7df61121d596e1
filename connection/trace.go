package connection

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// unique type to prevent assignment.
type traceContextKey struct{}

// ContextTrace returns the Trace associated with the
// provided context. If none, it returns nil.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceContextKey{}).(*Trace)
	return trace
}

// WithTrace returns a new context based on the provided parent
// ctx. Connections opened with the returned context will use
// the provided trace hooks, in addition to any previous hooks
// registered with ctx. Any hooks defined in the provided trace will
// be called first.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	if trace == nil {
		panic("nil trace")
	}
	old := ContextTrace(ctx)
	trace.compose(old)

	return context.WithValue(ctx, traceContextKey{}, trace)
}

// Trace defines a structure for handling connection lifecycle events.
type Trace struct {
	// ConnectStart is called before a connection of the named type is opened to a host.
	ConnectStart func(name string, params Parameters)

	// ConnectDone is called when the connection attempt completes, with err indicating
	// whether it was successful.
	ConnectDone func(name string, params Parameters, err error, d time.Duration)

	// ConnectionReused is called when a cached connection satisfies a request.
	ConnectionReused func(name, host string)

	// ConnectionClosed is called after a connection has been closed, with
	// err indicating any error condition.
	ConnectionClosed func(name, host string, err error)

	// Error is called after an error condition has been detected.
	Error func(name, host string, err error)
}

// compose modifies t such that it respects the previously-registered hooks in old.
func (t *Trace) compose(old *Trace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())

		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			tfCopy.Call(args)
			return of.Call(args)
		})
		tv.Field(i).Set(newFunc)
	}
}

// LoggingHooks delivers hooks that log connection errors.
func LoggingHooks(logger *zap.Logger) *Trace {
	return &Trace{
		Error: func(name, host string, err error) {
			logger.Error("connection error", zap.String("connection", name), zap.String("host", host), zap.Error(err))
		},
	}
}

// DiagnosticHooks delivers hooks that log every connection lifecycle event.
func DiagnosticHooks(logger *zap.Logger) *Trace {
	return &Trace{
		ConnectStart: func(name string, params Parameters) {
			logger.Debug("connect start", zap.String("connection", name), zap.String("host", params.Name),
				zap.String("hostname", params.Hostname), zap.Int("port", params.Port))
		},
		ConnectDone: func(name string, params Parameters, err error, d time.Duration) {
			logger.Debug("connect done", zap.String("connection", name), zap.String("host", params.Name),
				zap.Error(err), zap.Duration("took", d))
		},
		ConnectionReused: func(name, host string) {
			logger.Debug("connection reused", zap.String("connection", name), zap.String("host", host))
		},
		ConnectionClosed: func(name, host string, err error) {
			logger.Debug("connection closed", zap.String("connection", name), zap.String("host", host), zap.Error(err))
		},
		Error: func(name, host string, err error) {
			logger.Error("connection error", zap.String("connection", name), zap.String("host", host), zap.Error(err))
		},
	}
}
