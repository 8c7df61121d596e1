// Package inventory models the hosts a task can be run against, along with the groups and defaults
// their attributes are inherited from.
package inventory

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/damianoneill/netconf-tasks/connection"
)

// ConnectionOptions defines per connection type overrides of host attributes.
type ConnectionOptions struct {
	Hostname string                 `yaml:"hostname,omitempty"`
	Port     int                    `yaml:"port,omitempty"`
	Username string                 `yaml:"username,omitempty"`
	Password string                 `yaml:"password,omitempty"`
	Platform string                 `yaml:"platform,omitempty"`
	Extras   map[string]interface{} `yaml:"extras,omitempty"`
}

// Attributes defines the properties shared by hosts, groups and defaults.
// Zero values are treated as unset, and are resolved through the inheritance chain.
type Attributes struct {
	Hostname          string                       `yaml:"hostname,omitempty"`
	Port              int                          `yaml:"port,omitempty"`
	Username          string                       `yaml:"username,omitempty"`
	Password          string                       `yaml:"password,omitempty"`
	Platform          string                       `yaml:"platform,omitempty"`
	Data              map[string]interface{}       `yaml:"data,omitempty"`
	ConnectionOptions map[string]ConnectionOptions `yaml:"connection_options,omitempty"`
}

// Group defines a named set of attributes that hosts (and other groups) can inherit.
type Group struct {
	Name       string
	Attributes Attributes
	Groups     []*Group
}

// Inventory holds a set of hosts.
type Inventory struct {
	hosts    map[string]*Host
	groups   map[string]*Group
	defaults *Attributes
}

// New creates an inventory from the supplied hosts.
func New(hosts []*Host, groups []*Group, defaults *Attributes) *Inventory {
	inv := &Inventory{hosts: make(map[string]*Host), groups: make(map[string]*Group), defaults: defaults}
	for _, g := range groups {
		inv.groups[g.Name] = g
	}
	for _, h := range hosts {
		if h.Defaults == nil {
			h.Defaults = defaults
		}
		if h.conns == nil {
			h.conns = connection.NewCache()
		}
		inv.hosts[h.Name] = h
	}
	return inv
}

// Hosts delivers the inventory hosts, ordered by name.
func (inv *Inventory) Hosts() []*Host {
	hosts := make([]*Host, 0, len(inv.hosts))
	for _, h := range inv.hosts {
		hosts = append(hosts, h)
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Name < hosts[j].Name })
	return hosts
}

// Host delivers the named host, or nil if it is not in the inventory.
func (inv *Inventory) Host(name string) *Host {
	return inv.hosts[name]
}

// Group delivers the named group, or nil if it is not defined.
func (inv *Inventory) Group(name string) *Group {
	return inv.groups[name]
}

// Defaults delivers the inventory defaults, which may be nil.
func (inv *Inventory) Defaults() *Attributes {
	return inv.defaults
}

// Len delivers the number of hosts in the inventory.
func (inv *Inventory) Len() int {
	return len(inv.hosts)
}

// Filter delivers a new inventory holding the hosts for which f returns true.
// Hosts are shared with the receiver, including any open connections.
func (inv *Inventory) Filter(f func(*Host) bool) *Inventory {
	filtered := &Inventory{hosts: make(map[string]*Host), groups: inv.groups, defaults: inv.defaults}
	for name, h := range inv.hosts {
		if f(h) {
			filtered.hosts[name] = h
		}
	}
	return filtered
}

// FilterBy delivers a new inventory holding the hosts whose resolved value for key equals value.
func (inv *Inventory) FilterBy(key string, value interface{}) *Inventory {
	return inv.Filter(func(h *Host) bool {
		v, ok := h.Get(key)
		return ok && reflect.DeepEqual(v, value)
	})
}

// FilterByString delivers a new inventory holding the hosts whose resolved value for key, formatted as
// a string, equals value.
func (inv *Inventory) FilterByString(key, value string) *Inventory {
	return inv.Filter(func(h *Host) bool {
		v, ok := h.Get(key)
		return ok && fmt.Sprint(v) == value
	})
}

// InGroup returns a filter that selects hosts belonging, directly or through a parent group,
// to the named group.
func InGroup(name string) func(*Host) bool {
	return func(h *Host) bool {
		return h.HasGroup(name)
	}
}

// WithRegistry sets the connection registry used by every host in the inventory.
func (inv *Inventory) WithRegistry(r *connection.Registry) *Inventory {
	for _, h := range inv.hosts {
		h.registry = r
	}
	return inv
}
