package main

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/damianoneill/netconf-tasks/task"
)

type result struct {
	Name      string      `yaml:"name"`
	Result    interface{} `yaml:"result,omitempty"`
	Changed   bool        `yaml:"changed"`
	Failed    bool        `yaml:"failed"`
	Exception string      `yaml:"exception,omitempty"`
}

type report struct {
	ID    string              `yaml:"id"`
	Task  string              `yaml:"task"`
	Hosts map[string][]result `yaml:"hosts"`
}

func newReport(ar *task.AggregatedResult) *report {
	rep := &report{ID: ar.ID, Task: ar.Name, Hosts: make(map[string][]result, ar.Len())}
	for _, h := range ar.Hosts() {
		mr := ar.Host(h)
		rs := make([]result, 0, len(mr))
		for _, r := range mr {
			res := result{Name: r.Name, Result: r.Result, Changed: r.Changed, Failed: r.Failed}
			if r.Err != nil {
				res.Exception = r.Err.Error()
			}
			rs = append(rs, res)
		}
		rep.Hosts[h] = rs
	}
	return rep
}

func writeReport(w io.Writer, ar *task.AggregatedResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReport(ar)); err != nil {
		return errors.Wrap(err, "failed to write results")
	}
	return enc.Close()
}
