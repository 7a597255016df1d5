package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Overall and per-probe statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker reports the health of the process and its dependencies.
type HealthChecker interface {
	Check(ctx context.Context) *HealthStatus
}

// HealthStatus is the aggregated result of a check.
type HealthStatus struct {
	Status    string            `json:"status" yaml:"status"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Services  map[string]Status `json:"services,omitempty" yaml:"services,omitempty"`
	Version   string            `json:"version,omitempty" yaml:"version,omitempty"`
}

// Healthy reports whether every probe passed.
func (h *HealthStatus) Healthy() bool {
	return h.Status == StatusHealthy
}

// Names returns the probe names in order.
func (h *HealthStatus) Names() []string {
	names := make([]string, 0, len(h.Services))
	for name := range h.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status is the result of one probe.
type Status struct {
	Status   string        `json:"status" yaml:"status"`
	Details  string        `json:"details,omitempty" yaml:"details,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// CompositeChecker runs named probes concurrently.
type CompositeChecker struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	probes map[string]Probe
}

// NewCompositeChecker creates a checker. Each probe gets at most timeout.
func NewCompositeChecker(version string, timeout time.Duration) *CompositeChecker {
	return &CompositeChecker{
		version: version,
		timeout: timeout,
		probes:  make(map[string]Probe),
	}
}

// Register adds or replaces a probe.
func (c *CompositeChecker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Check runs every probe and aggregates the results. One failing probe makes
// the whole status unhealthy.
func (c *CompositeChecker) Check(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, probe := range c.probes {
		probes[name] = probe
	}
	c.mu.RUnlock()

	result := &HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Services:  make(map[string]Status, len(probes)),
		Version:   c.version,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe Probe) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := probe(probeCtx)
			st := Status{Status: StatusHealthy, Duration: time.Since(start)}
			if err != nil {
				st.Status = StatusUnhealthy
				st.Details = err.Error()
			}

			mu.Lock()
			result.Services[name] = st
			if err != nil {
				result.Status = StatusUnhealthy
			}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	return result
}

// Handler serves the result of checker as JSON: 200 when healthy, 503
// otherwise.
func Handler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Healthy() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(status)
	}
}
