// Package healthcheck reports whether the service's dependencies are
// reachable, over HTTP and the gRPC health protocol.
package healthcheck

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Pinger is a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the result of one round of checks.
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

func (r Report) Healthy() bool { return r.Status == StatusHealthy }

type Checker struct {
	timeout time.Duration
	logger  watermill.LoggerAdapter

	mu     sync.RWMutex
	names  []string
	checks map[string]Pinger
}

// NewChecker creates a checker. Each probe is bounded by timeout.
func NewChecker(timeout time.Duration, logger watermill.LoggerAdapter) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Checker{timeout: timeout, logger: logger, checks: make(map[string]Pinger)}
}

// Add registers a named dependency. Adding a name twice replaces the
// previous pinger.
func (c *Checker) Add(name string, p Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.checks[name]; !ok {
		c.names = append(c.names, name)
		sort.Strings(c.names)
	}
	c.checks[name] = p
}

// Check probes all dependencies concurrently.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	names := append([]string(nil), c.names...)
	checks := make(map[string]Pinger, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	results := make([]string, len(names))
	wg := sync.WaitGroup{}
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			if err := checks[name].Ping(ctx); err != nil {
				c.logger.Error("Health check failed", err, watermill.LogFields{"dependency": name})
				results[i] = StatusUnhealthy
				return
			}
			results[i] = StatusHealthy
		}()
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]string, len(names)),
		Timestamp: time.Now().UTC(),
	}
	for i, name := range names {
		report.Checks[name] = results[i]
		if results[i] != StatusHealthy {
			report.Status = StatusUnhealthy
		}
	}
	return report
}
