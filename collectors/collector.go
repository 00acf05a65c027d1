// Package collectors provides the data collection interface and the runner
// that polls collectors on their own schedules. Each collector gathers one
// kind of data (system metrics, startup inventory) and returns structured
// results that the TUI and the one-shot commands render.
package collectors

import (
	"context"
	"sync"
	"time"
)

// Collector is the interface that all data collectors must implement.
type Collector interface {
	// Name returns the collector's unique identifier (e.g., "sysmetrics", "startup").
	// Names must be unique within a Registry.
	Name() string

	// Description returns a human-readable description of what this collector gathers.
	Description() string

	// Interval returns the recommended polling interval for this collector.
	Interval() time.Duration

	// Collect gathers data and returns structured results.
	// Non-fatal issues should be reported as Warnings rather than errors.
	// The context should be respected for cancellation of long-running operations.
	Collect(ctx context.Context) (*CollectResult, error)
}

// CollectResult holds the output of a collection run.
type CollectResult struct {
	// Collector is the name of the collector that produced this result.
	Collector string `json:"collector"`

	// Timestamp records when the collection completed.
	Timestamp time.Time `json:"timestamp"`

	// Data is the collector-specific structured data.
	Data interface{} `json:"data"`

	// Warnings contains non-fatal issues encountered during collection,
	// e.g. a GPU tool that exited non-zero while CPU and RAM were read fine.
	Warnings []string `json:"warnings,omitempty"`
}

// Update is what the Runner sends on its updates channel after each run.
type Update struct {
	Source    string
	Result    *CollectResult
	Timestamp time.Time
	Error     error
}

// CollectorStatus tracks the health of one registered collector.
type CollectorStatus struct {
	Name        string
	LastRun     time.Time
	LastLatency time.Duration
	RunCount    int64
	ErrorCount  int64
	LastError   error
	Healthy     bool
}

// Registry holds registered collectors and provides lookup by name.
type Registry struct {
	mu         sync.Mutex
	collectors []Collector
	status     map[string]*CollectorStatus
}

// NewRegistry creates a new empty collector registry.
func NewRegistry() *Registry {
	return &Registry{
		collectors: make([]Collector, 0),
		status:     make(map[string]*CollectorStatus),
	}
}

// Register adds a collector to the registry.
// If a collector with the same name already exists, it is replaced.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status[c.Name()] = &CollectorStatus{Name: c.Name(), Healthy: true}
	for i, existing := range r.collectors {
		if existing.Name() == c.Name() {
			r.collectors[i] = c
			return
		}
	}
	r.collectors = append(r.collectors, c)
}

// Get returns a collector by name. The second return value indicates
// whether the collector was found.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.collectors {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// List returns the names of all registered collectors in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.collectors))
	for i, c := range r.collectors {
		names[i] = c.Name()
	}
	return names
}

// All returns all registered collectors.
func (r *Registry) All() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}

// Status returns a copy of the status for the named collector.
func (r *Registry) Status(name string) (CollectorStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.status[name]
	if !ok {
		return CollectorStatus{}, false
	}
	return *s, true
}

// AllStatus returns a copy of every collector's status in registration order.
func (r *Registry) AllStatus() []CollectorStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CollectorStatus, 0, len(r.collectors))
	for _, c := range r.collectors {
		if s, ok := r.status[c.Name()]; ok {
			out = append(out, *s)
		}
	}
	return out
}

// updateStatus applies fn to the named collector's status under the lock.
func (r *Registry) updateStatus(name string, fn func(s *CollectorStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.status[name]
	if !ok {
		s = &CollectorStatus{Name: name}
		r.status[name] = s
	}
	fn(s)
}
