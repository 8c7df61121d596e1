package task

import (
	"sort"
	"sync"
)

// GlobalState holds state shared by every run against an inventory.
// A GlobalState is safe for concurrent use.
type GlobalState struct {
	mu          sync.RWMutex
	dryRun      bool
	failedHosts map[string]struct{}
}

// NewGlobalState creates a state with the supplied default dry-run mode.
func NewGlobalState(dryRun bool) *GlobalState {
	return &GlobalState{dryRun: dryRun, failedHosts: make(map[string]struct{})}
}

// DryRun delivers the default dry-run mode.
func (s *GlobalState) DryRun() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dryRun
}

// SetDryRun sets the default dry-run mode.
func (s *GlobalState) SetDryRun(dryRun bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dryRun = dryRun
}

// AddFailedHost records a host as failed.
func (s *GlobalState) AddFailedHost(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedHosts[name] = struct{}{}
}

// RecoverHost removes a host from the failed set.
func (s *GlobalState) RecoverHost(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failedHosts, name)
}

// ResetFailedHosts clears the failed set.
func (s *GlobalState) ResetFailedHosts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedHosts = make(map[string]struct{})
}

// IsFailed reports whether the named host is in the failed set.
func (s *GlobalState) IsFailed(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.failedHosts[name]
	return ok
}

// FailedHosts delivers the sorted names of the failed hosts.
func (s *GlobalState) FailedHosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.failedHosts))
	for n := range s.failedHosts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
