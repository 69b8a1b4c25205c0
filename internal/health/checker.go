package health

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/crxkit/crxkit/internal/domain"
)

// SystemHealthChecker aggregates the health of named components
type SystemHealthChecker struct {
	components map[string]domain.HealthReporter

	// Health check configuration
	timeout   time.Duration
	startTime time.Time

	// Cached health status to avoid expensive checks on every request
	lastCheck   time.Time
	lastHealth  domain.SystemHealth
	cacheTTL    time.Duration
	healthMutex sync.RWMutex
}

// NewSystemHealthChecker creates a new system health checker. Nil reporters are skipped.
func NewSystemHealthChecker(components map[string]domain.HealthReporter) *SystemHealthChecker {
	h := &SystemHealthChecker{
		components: make(map[string]domain.HealthReporter, len(components)),
		timeout:    5 * time.Second,
		cacheTTL:   30 * time.Second,
		startTime:  time.Now(),
	}
	for name, c := range components {
		if c != nil {
			h.components[name] = c
		}
	}
	return h
}

// WithCacheTTL sets how long an aggregated result is reused
func (h *SystemHealthChecker) WithCacheTTL(ttl time.Duration) *SystemHealthChecker {
	h.cacheTTL = ttl
	return h
}

// Components returns the registered component names in order
func (h *SystemHealthChecker) Components() []string {
	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth performs a comprehensive system health check
func (h *SystemHealthChecker) CheckHealth(ctx context.Context) domain.SystemHealth {
	h.healthMutex.Lock()
	defer h.healthMutex.Unlock()

	// Return cached result if still valid
	if !h.lastCheck.IsZero() && time.Since(h.lastCheck) < h.cacheTTL {
		return h.lastHealth
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	now := time.Now()
	components := make(map[string]domain.HealthStatus, len(h.components))
	overallStatus := domain.HealthStatusHealthy

	for _, name := range h.Components() {
		status := h.components[name].HealthCheck(checkCtx)
		components[name] = status
		if status.Status != domain.HealthStatusHealthy {
			overallStatus = h.aggregateStatus(overallStatus, status.Status)
		}
	}

	systemHealth := domain.SystemHealth{
		Status:     overallStatus,
		Timestamp:  now,
		Components: components,
		Metrics:    h.collectSystemMetrics(),
		Uptime:     time.Since(h.startTime),
	}

	h.lastCheck = now
	h.lastHealth = systemHealth

	return systemHealth
}

// CheckComponent performs a health check on a specific component
func (h *SystemHealthChecker) CheckComponent(ctx context.Context, component string) domain.HealthStatus {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	reporter, ok := h.components[component]
	if !ok {
		return domain.HealthStatus{
			Status:    domain.HealthStatusUnhealthy,
			Message:   "Unknown component",
			Timestamp: time.Now(),
			Details: map[string]any{
				"component": component,
				"error":     "Component not found",
			},
		}
	}
	return reporter.HealthCheck(checkCtx)
}

// aggregateStatus determines the overall status based on component statuses
func (h *SystemHealthChecker) aggregateStatus(current, componentStatus string) string {
	// Priority: unhealthy > degraded > healthy
	statusPriority := map[string]int{
		domain.HealthStatusHealthy:   0,
		domain.HealthStatusDegraded:  1,
		domain.HealthStatusUnhealthy: 2,
	}

	currentPriority := statusPriority[current]
	componentPriority, known := statusPriority[componentStatus]
	if !known {
		componentPriority = statusPriority[domain.HealthStatusUnhealthy]
		componentStatus = domain.HealthStatusUnhealthy
	}

	if componentPriority > currentPriority {
		return componentStatus
	}
	return current
}

// collectSystemMetrics gathers process-wide metrics
func (h *SystemHealthChecker) collectSystemMetrics() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"system": map[string]any{
			"uptime_seconds": time.Since(h.startTime).Seconds(),
			"goroutines":     runtime.NumGoroutine(),
			"heap_alloc":     mem.HeapAlloc,
			"timestamp":      time.Now(),
		},
	}
}

// GetDetailedHealth returns detailed health information for debugging
func (h *SystemHealthChecker) GetDetailedHealth(ctx context.Context) map[string]any {
	systemHealth := h.CheckHealth(ctx)

	h.healthMutex.RLock()
	lastCheck := h.lastCheck
	h.healthMutex.RUnlock()

	return map[string]any{
		"overall_status": systemHealth.Status,
		"timestamp":      systemHealth.Timestamp,
		"components":     systemHealth.Components,
		"metrics":        systemHealth.Metrics,
		"diagnostics": map[string]any{
			"health_check_timeout": h.timeout.String(),
			"cache_ttl":            h.cacheTTL.String(),
			"last_check_age":       time.Since(lastCheck).String(),
		},
	}
}

// IsHealthy returns true if the system is healthy
func (h *SystemHealthChecker) IsHealthy(ctx context.Context) bool {
	return h.CheckHealth(ctx).Status == domain.HealthStatusHealthy
}

var _ domain.HealthChecker = (*SystemHealthChecker)(nil)
