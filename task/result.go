package task

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/damianoneill/netconf-tasks/inventory"
)

// ErrHostFailed is returned by runs configured to raise on error when a task fails against any host.
var ErrHostFailed = errors.New("task failed on one or more hosts")

// Result represents the outcome of running a task against a single host.
type Result struct {
	// Host is the host the task was run against.
	Host *inventory.Host
	// Name is the name of the task.
	Name string
	// Result holds the value delivered by the task.
	Result interface{}
	// Changed indicates the task modified the host.
	Changed bool
	// Diff describes any change made to the host.
	Diff string
	// Failed is set if the task returned an error.
	Failed bool
	// Err holds the error returned by the task.
	Err error
}

// NewResult creates a successful result associating a value with a host.
func NewResult(h *inventory.Host, value interface{}) *Result {
	return &Result{Host: h, Result: value}
}

func (r *Result) String() string {
	if r.Failed {
		return fmt.Sprintf("%s: %s failed: %v", r.Host, r.Name, r.Err)
	}
	return fmt.Sprintf("%s: %s: %v", r.Host, r.Name, r.Result)
}

// MultiResult holds the results of a task, and of any sub-tasks it ran, against a single host.
// The first element is the result of the task itself.
type MultiResult []*Result

// Failed reports whether any of the results failed.
func (mr MultiResult) Failed() bool {
	for _, r := range mr {
		if r.Failed {
			return true
		}
	}
	return false
}

// Changed reports whether any of the results changed the host.
func (mr MultiResult) Changed() bool {
	for _, r := range mr {
		if r.Changed {
			return true
		}
	}
	return false
}

// AggregatedResult holds the results of a task run against a set of hosts.
type AggregatedResult struct {
	// ID uniquely identifies the run.
	ID string
	// Name is the name of the task that was run.
	Name    string
	results map[string]MultiResult
}

// NewAggregatedResult creates an empty aggregated result.
func NewAggregatedResult(id, name string) *AggregatedResult {
	return &AggregatedResult{ID: id, Name: name, results: make(map[string]MultiResult)}
}

// Add records the results for a host.
func (ar *AggregatedResult) Add(host string, mr MultiResult) {
	ar.results[host] = mr
}

// Host delivers the results for the named host, or nil if the task was not run against it.
func (ar *AggregatedResult) Host(name string) MultiResult {
	return ar.results[name]
}

// Hosts delivers the names of the hosts the task was run against, in sorted order.
func (ar *AggregatedResult) Hosts() []string {
	names := make([]string, 0, len(ar.results))
	for n := range ar.results {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len delivers the number of hosts the task was run against.
func (ar *AggregatedResult) Len() int {
	return len(ar.results)
}

// Failed reports whether the task failed against any host.
func (ar *AggregatedResult) Failed() bool {
	for _, mr := range ar.results {
		if mr.Failed() {
			return true
		}
	}
	return false
}

// FailedHosts delivers the results of the hosts the task failed against.
func (ar *AggregatedResult) FailedHosts() map[string]MultiResult {
	failed := make(map[string]MultiResult)
	for n, mr := range ar.results {
		if mr.Failed() {
			failed[n] = mr
		}
	}
	return failed
}

func (ar *AggregatedResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s):", ar.Name, ar.ID)
	for _, h := range ar.Hosts() {
		for _, r := range ar.results[h] {
			fmt.Fprintf(&b, "\n  %s", r)
		}
	}
	return b.String()
}
