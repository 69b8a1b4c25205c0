package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crxkit/crxkit/internal/domain"
)

type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) HealthCheck(ctx context.Context) domain.HealthStatus {
	return m.Called().Get(0).(domain.HealthStatus)
}

func reporter(status string) *MockReporter {
	m := new(MockReporter)
	m.On("HealthCheck").Return(domain.HealthStatus{Status: status, Timestamp: time.Now()})
	return m
}

func TestCheckHealth_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]string
		expected string
	}{
		{"all healthy", map[string]string{"catalog": "healthy", "hmr": "healthy"}, "healthy"},
		{"one degraded", map[string]string{"catalog": "healthy", "resolver_cache": "degraded"}, "degraded"},
		{"unhealthy wins", map[string]string{"catalog": "degraded", "hmr": "unhealthy", "bundler": "healthy"}, "unhealthy"},
		{"unknown status counts as unhealthy", map[string]string{"catalog": "confused"}, "unhealthy"},
		{"no components", map[string]string{}, "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			components := make(map[string]domain.HealthReporter)
			for name, status := range tt.statuses {
				components[name] = reporter(status)
			}
			h := NewSystemHealthChecker(components)

			result := h.CheckHealth(context.Background())
			assert.Equal(t, tt.expected, result.Status)
			assert.Len(t, result.Components, len(tt.statuses))
			assert.Contains(t, result.Metrics, "system")
		})
	}
}

func TestCheckHealth_Cached(t *testing.T) {
	m := reporter(domain.HealthStatusHealthy)
	h := NewSystemHealthChecker(map[string]domain.HealthReporter{"catalog": m})

	h.CheckHealth(context.Background())
	h.CheckHealth(context.Background())
	m.AssertNumberOfCalls(t, "HealthCheck", 1)

	h.WithCacheTTL(0)
	h.CheckHealth(context.Background())
	m.AssertNumberOfCalls(t, "HealthCheck", 2)
}

func TestCheckComponent(t *testing.T) {
	h := NewSystemHealthChecker(map[string]domain.HealthReporter{
		"hmr":     reporter(domain.HealthStatusDegraded),
		"skipped": nil,
	})

	assert.Equal(t, []string{"hmr"}, h.Components())
	assert.Equal(t, domain.HealthStatusDegraded, h.CheckComponent(context.Background(), "hmr").Status)

	unknown := h.CheckComponent(context.Background(), "storage")
	assert.Equal(t, domain.HealthStatusUnhealthy, unknown.Status)
	assert.Equal(t, "storage", unknown.Details["component"])
}

func TestIsHealthyAndDetails(t *testing.T) {
	h := NewSystemHealthChecker(map[string]domain.HealthReporter{"catalog": reporter(domain.HealthStatusHealthy)})
	assert.True(t, h.IsHealthy(context.Background()))

	detailed := h.GetDetailedHealth(context.Background())
	assert.Equal(t, domain.HealthStatusHealthy, detailed["overall_status"])
	assert.Contains(t, detailed, "diagnostics")
}
