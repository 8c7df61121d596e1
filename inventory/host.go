package inventory

import (
	"context"

	"github.com/imdario/mergo"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/connection"
)

// Host represents a device tasks are run against.
type Host struct {
	Name       string
	Attributes Attributes
	Groups     []*Group
	Defaults   *Attributes

	registry *connection.Registry
	conns    *connection.Cache
}

// NewHost creates a host that inherits from the supplied groups, in order.
func NewHost(name string, attrs Attributes, groups ...*Group) *Host {
	return &Host{
		Name:       name,
		Attributes: attrs,
		Groups:     groups,
		registry:   connection.DefaultRegistry,
		conns:      connection.NewCache(),
	}
}

// chain delivers the attribute sets consulted when resolving a value, in priority order:
// the host, its groups (depth first, in declared order) and finally the defaults.
func (h *Host) chain() []*Attributes {
	chain := []*Attributes{&h.Attributes}
	seen := make(map[*Group]bool)
	var walk func(groups []*Group)
	walk = func(groups []*Group) {
		for _, g := range groups {
			if seen[g] {
				continue
			}
			seen[g] = true
			chain = append(chain, &g.Attributes)
			walk(g.Groups)
		}
	}
	walk(h.Groups)
	if h.Defaults != nil {
		chain = append(chain, h.Defaults)
	}
	return chain
}

func (h *Host) resolveString(f func(*Attributes) string) string {
	for _, a := range h.chain() {
		if v := f(a); v != "" {
			return v
		}
	}
	return ""
}

// Hostname delivers the resolved hostname, falling back to the host name if none is defined.
func (h *Host) Hostname() string {
	if v := h.resolveString(func(a *Attributes) string { return a.Hostname }); v != "" {
		return v
	}
	return h.Name
}

// Port delivers the resolved port, or zero if none is defined.
func (h *Host) Port() int {
	for _, a := range h.chain() {
		if a.Port != 0 {
			return a.Port
		}
	}
	return 0
}

// Username delivers the resolved username.
func (h *Host) Username() string {
	return h.resolveString(func(a *Attributes) string { return a.Username })
}

// Password delivers the resolved password.
func (h *Host) Password() string {
	return h.resolveString(func(a *Attributes) string { return a.Password })
}

// Platform delivers the resolved platform.
func (h *Host) Platform() string {
	return h.resolveString(func(a *Attributes) string { return a.Platform })
}

// Data delivers the host data merged with the data of its groups and defaults.
// Where a key is defined more than once, the highest priority value wins.
func (h *Host) Data() map[string]interface{} {
	chain := h.chain()
	data := make([]map[string]interface{}, 0, len(chain))
	for _, a := range chain {
		data = append(data, a.Data)
	}
	return merge(data...)
}

// Get delivers the resolved value of key, which is either an attribute name (hostname, port, username,
// platform) or a data key.
func (h *Host) Get(key string) (interface{}, bool) {
	switch key {
	case "name":
		return h.Name, true
	case "hostname":
		return h.Hostname(), true
	case "port":
		return h.Port(), true
	case "username":
		return h.Username(), true
	case "platform":
		return h.Platform(), true
	}
	for _, a := range h.chain() {
		if v, ok := a.Data[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// HasGroup reports whether the host belongs, directly or through a parent group, to the named group.
func (h *Host) HasGroup(name string) bool {
	seen := make(map[*Group]bool)
	var find func(groups []*Group) bool
	find = func(groups []*Group) bool {
		for _, g := range groups {
			if seen[g] {
				continue
			}
			seen[g] = true
			if g.Name == name || find(g.Groups) {
				return true
			}
		}
		return false
	}
	return find(h.Groups)
}

// ConnectionParameters delivers the parameters used to open the named connection type.
// Connection options defined anywhere in the inheritance chain take priority over the host's base attributes.
func (h *Host) ConnectionParameters(name string) connection.Parameters {
	chain := h.chain()
	opt := func(f func(ConnectionOptions) string) string {
		for _, a := range chain {
			if co, ok := a.ConnectionOptions[name]; ok {
				if v := f(co); v != "" {
					return v
				}
			}
		}
		return ""
	}

	params := connection.Parameters{
		Name:     h.Name,
		Hostname: opt(func(co ConnectionOptions) string { return co.Hostname }),
		Username: opt(func(co ConnectionOptions) string { return co.Username }),
		Password: opt(func(co ConnectionOptions) string { return co.Password }),
		Platform: opt(func(co ConnectionOptions) string { return co.Platform }),
	}
	var extras []map[string]interface{}
	for _, a := range chain {
		co, ok := a.ConnectionOptions[name]
		if !ok {
			continue
		}
		if params.Port == 0 {
			params.Port = co.Port
		}
		extras = append(extras, co.Extras)
	}
	params.Extras = merge(extras...)

	if params.Hostname == "" {
		params.Hostname = h.Hostname()
	}
	if params.Port == 0 {
		params.Port = h.Port()
	}
	if params.Username == "" {
		params.Username = h.Username()
	}
	if params.Password == "" {
		params.Password = h.Password()
	}
	if params.Platform == "" {
		params.Platform = h.Platform()
	}
	return params
}

// GetConnection delivers the named connection to the host, opening it if it is not already open.
func (h *Host) GetConnection(ctx context.Context, name string, cfg *config.Config) (connection.Connection, error) {
	return h.cache().Get(ctx, h.reg(), name, h.ConnectionParameters(name), cfg)
}

// ConnectionOpen reports whether the named connection to the host is open.
func (h *Host) ConnectionOpen(name string) bool {
	return h.cache().Open(name)
}

// CloseConnection closes the named connection to the host, if open.
func (h *Host) CloseConnection(ctx context.Context, name string) error {
	return h.cache().Close(ctx, name, h.Name)
}

// CloseConnections closes every open connection to the host.
func (h *Host) CloseConnections(ctx context.Context) error {
	return h.cache().CloseAll(ctx, h.Name)
}

// merge combines maps, listed highest priority first, into a new map. Nested maps are merged key by
// key, and an explicit zero value in a higher priority map is retained.
func merge(maps ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for i := len(maps) - 1; i >= 0; i-- {
		if len(maps[i]) == 0 {
			continue
		}
		_ = mergo.Merge(&merged, clone(maps[i]), mergo.WithOverride)
	}
	return merged
}

// clone copies m, and any maps nested in it, so that merging never modifies inventory data.
func clone(m map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			v = clone(nested)
		}
		c[k] = v
	}
	return c
}

func (h *Host) reg() *connection.Registry {
	if h.registry == nil {
		return connection.DefaultRegistry
	}
	return h.registry
}

func (h *Host) cache() *connection.Cache {
	if h.conns == nil {
		h.conns = connection.NewCache()
	}
	return h.conns
}

func (h *Host) String() string {
	return h.Name
}
