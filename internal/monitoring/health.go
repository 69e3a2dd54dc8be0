// internal/monitoring/health.go
package monitoring

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is a named probe. A failing critical check makes the whole
// service unhealthy; any other failure only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// CheckResult is the outcome of one HealthCheck.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status         HealthStatus           `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Uptime         time.Duration          `json:"uptime"`
	GoroutineCount int                    `json:"goroutine_count"`
	Checks         map[string]CheckResult `json:"checks,omitempty"`
}

// HealthManager runs the registered checks on demand.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
	started time.Time
}

// NewHealthManager creates a new health manager
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthManager{
		checks:  make(map[string]HealthCheck),
		timeout: timeout,
		started: time.Now(),
	}
}

// RegisterCheck adds or replaces a check.
func (hm *HealthManager) RegisterCheck(check HealthCheck) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[check.Name] = check
}

// CheckNames lists the registered checks in name order.
func (hm *HealthManager) CheckNames() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every registered check concurrently and aggregates the result.
func (hm *HealthManager) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var (
		wg  sync.WaitGroup
		rmu sync.Mutex
	)
	for _, check := range checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			res := hm.run(ctx, c)
			rmu.Lock()
			results[c.Name] = res
			rmu.Unlock()
		}(check)
	}
	wg.Wait()

	health := SystemHealth{
		Status:         HealthStatusHealthy,
		Timestamp:      time.Now(),
		Uptime:         time.Since(hm.started),
		GoroutineCount: runtime.NumGoroutine(),
		Checks:         results,
	}
	for _, res := range results {
		if res.Status == HealthStatusHealthy {
			continue
		}
		if res.Critical {
			health.Status = HealthStatusUnhealthy
		} else if health.Status == HealthStatusHealthy {
			health.Status = HealthStatusDegraded
		}
	}
	return health
}

func (hm *HealthManager) run(ctx context.Context, c HealthCheck) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	start := time.Now()
	res := CheckResult{Status: HealthStatusHealthy, Critical: c.Critical}
	if c.Check != nil {
		if err := c.Check(checkCtx); err != nil {
			res.Status = HealthStatusUnhealthy
			res.Error = err.Error()
		}
	}
	res.Duration = time.Since(start)
	return res
}

// DatabaseHealthCheck creates a critical database connectivity check
func DatabaseHealthCheck(name string, ping func(ctx context.Context) error) HealthCheck {
	return HealthCheck{Name: name, Critical: true, Check: ping}
}
