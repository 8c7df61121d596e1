// Package connection defines the plugin registry used to open named connection types to inventory hosts.
package connection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/damianoneill/netconf-tasks/config"
)

// ErrUnknownPlugin is returned when a connection is requested for a name that has not been registered.
var ErrUnknownPlugin = errors.New("unknown connection plugin")

// Connection represents an open connection to a host.
type Connection interface {
	Close() error
}

// Parameters defines the resolved properties used to open a connection to a host.
type Parameters struct {
	// Name is the inventory name of the host.
	Name     string
	Hostname string
	Port     int
	Username string
	Password string
	Platform string
	// Extras holds plugin specific options.
	Extras map[string]interface{}
}

// Factory opens a new connection using the supplied parameters and runtime configuration.
type Factory func(ctx context.Context, params Parameters, cfg *config.Config) (Connection, error)

// Registry maps connection type names to the factories that create them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry is the registry used by package level functions and, unless overridden,
// by inventory hosts.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates a connection type name with a factory, replacing any existing association.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Deregister removes any factory associated with name.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

// Names delivers the sorted list of registered connection type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open creates a new connection of the named type.
func (r *Registry) Open(ctx context.Context, name string, params Parameters, cfg *config.Config) (c Connection, err error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		err = errors.Wrapf(ErrUnknownPlugin, "%s", name)
		if trace := ContextTrace(ctx); trace != nil && trace.Error != nil {
			trace.Error(name, params.Name, err)
		}
		return nil, err
	}

	if trace := ContextTrace(ctx); trace != nil {
		if trace.ConnectStart != nil {
			trace.ConnectStart(name, params)
		}
		if trace.ConnectDone != nil {
			begin := time.Now()
			defer func() {
				trace.ConnectDone(name, params, err, time.Since(begin))
			}()
		}
	}

	if c, err = f(ctx, params, cfg); err != nil {
		if trace := ContextTrace(ctx); trace != nil && trace.Error != nil {
			trace.Error(name, params.Name, err)
		}
	}
	return c, err
}

// Register associates a connection type name with a factory in the default registry.
func Register(name string, f Factory) {
	DefaultRegistry.Register(name, f)
}
