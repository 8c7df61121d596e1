package inventory

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownGroup is returned when a host or group refers to a group that is not defined.
var ErrUnknownGroup = errors.New("unknown group")

// entry defines the file representation of a host or group.
type entry struct {
	Attributes `yaml:",inline"`
	Groups     []string `yaml:"groups,omitempty"`
}

// Load creates an inventory from YAML host, group and defaults files.
// The group and defaults files are optional; an empty path, or a path that does not exist, is ignored.
func Load(hostFile, groupFile, defaultsFile string) (*Inventory, error) {
	hostEntries := map[string]*entry{}
	if err := readFile(hostFile, &hostEntries, true); err != nil {
		return nil, err
	}

	groupEntries := map[string]*entry{}
	if err := readFile(groupFile, &groupEntries, false); err != nil {
		return nil, err
	}

	var defaults *Attributes
	if err := readFile(defaultsFile, &defaults, false); err != nil {
		return nil, err
	}

	groups := make(map[string]*Group, len(groupEntries))
	for name, e := range groupEntries {
		if e == nil {
			e = &entry{}
		}
		groups[name] = &Group{Name: name, Attributes: e.Attributes}
	}
	for name, e := range groupEntries {
		if e == nil {
			continue
		}
		parents, err := lookupGroups(groups, e.Groups)
		if err != nil {
			return nil, errors.Wrapf(err, "group %s", name)
		}
		groups[name].Groups = parents
	}

	hosts := make([]*Host, 0, len(hostEntries))
	for name, e := range hostEntries {
		if e == nil {
			e = &entry{}
		}
		hg, err := lookupGroups(groups, e.Groups)
		if err != nil {
			return nil, errors.Wrapf(err, "host %s", name)
		}
		hosts = append(hosts, NewHost(name, e.Attributes, hg...))
	}

	groupList := make([]*Group, 0, len(groups))
	for _, g := range groups {
		groupList = append(groupList, g)
	}
	sort.Slice(groupList, func(i, j int) bool { return groupList[i].Name < groupList[j].Name })

	return New(hosts, groupList, defaults), nil
}

func lookupGroups(groups map[string]*Group, names []string) ([]*Group, error) {
	resolved := make([]*Group, 0, len(names))
	for _, n := range names {
		g, ok := groups[n]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownGroup, "%s", n)
		}
		resolved = append(resolved, g)
	}
	return resolved, nil
}

func readFile(path string, v interface{}, required bool) error {
	if path == "" {
		if required {
			return errors.New("inventory host file not specified")
		}
		return nil
	}
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304
	if err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read inventory file %s", path)
	}
	if err = yaml.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to parse inventory file %s", path)
	}
	return nil
}
