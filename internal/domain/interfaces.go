package domain

import "context"

// FileChecker answers existence questions about source files
type FileChecker interface {
	Stat(path string) FileStat
	Invalidate(path string)
}

// StatCache defines the contract for caching existence checks
type StatCache interface {
	Get(key string) (FileStat, bool)
	Set(key string, stat FileStat)
	Invalidate(key string)
	Clear()
	Stats() CacheStats

	// Health and monitoring
	HealthCheck(ctx context.Context) HealthStatus
}

// HealthReporter is implemented by every component the health checker polls
type HealthReporter interface {
	HealthCheck(ctx context.Context) HealthStatus
}

// HealthChecker defines the interface for system health monitoring
type HealthChecker interface {
	CheckHealth(ctx context.Context) SystemHealth
	CheckComponent(ctx context.Context, component string) HealthStatus
}

// Broadcaster pushes build-phase events to connected extension contexts
type Broadcaster interface {
	Broadcast(event string) int
	ClientCount() int
}

// Validator defines the interface for input validation on the dev API
type Validator interface {
	ValidatePath(path string) error
	ValidateSpecifier(specifier string) error
	ValidateEvent(event string) error
}
