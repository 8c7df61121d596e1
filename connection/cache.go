package connection

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/damianoneill/netconf-tasks/config"
)

// Cache holds the open connections of a single host, keyed by connection type name.
// A Cache is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	conns map[string]Connection
}

// NewCache creates an empty connection cache.
func NewCache() *Cache {
	return &Cache{conns: make(map[string]Connection)}
}

// Get delivers the cached connection of the named type, opening it through the registry if it
// is not yet open.
func (c *Cache) Get(ctx context.Context, r *Registry, name string, params Parameters, cfg *config.Config) (Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[name]; ok {
		if trace := ContextTrace(ctx); trace != nil && trace.ConnectionReused != nil {
			trace.ConnectionReused(name, params.Name)
		}
		return conn, nil
	}

	conn, err := r.Open(ctx, name, params, cfg)
	if err != nil {
		return nil, err
	}
	c.conns[name] = conn
	return conn, nil
}

// Open reports whether a connection of the named type is cached.
func (c *Cache) Open(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.conns[name]
	return ok
}

// Names delivers the sorted names of the cached connections.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.conns))
	for n := range c.conns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close closes and evicts the connection of the named type.
// Closing a connection that is not open is not an error.
func (c *Cache) Close(ctx context.Context, name, host string) error {
	c.mu.Lock()
	conn, ok := c.conns[name]
	delete(c.conns, name)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	err := conn.Close()
	if trace := ContextTrace(ctx); trace != nil && trace.ConnectionClosed != nil {
		trace.ConnectionClosed(name, host, err)
	}
	return err
}

// CloseAll closes and evicts every cached connection, returning the first error encountered.
func (c *Cache) CloseAll(ctx context.Context, host string) error {
	var first error
	for _, name := range c.Names() {
		if err := c.Close(ctx, name, host); err != nil && first == nil {
			first = errors.Wrapf(err, "failed to close %s connection", name)
		}
	}
	return first
}
