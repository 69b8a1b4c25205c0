// Package middleware holds the fiber middleware shared by the dev API.
package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/crxkit/crxkit/internal/domain"
)

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate int // tokens per second
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewTokenBucket creates a full token bucket
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Take refills the bucket and consumes one token when available. It
// returns whether the request is allowed and the whole tokens left.
func (tb *TokenBucket) Take() (bool, int) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*float64(tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true, int(tb.tokens)
	}
	return false, 0
}

// Allow checks if a request should be allowed
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.Take()
	return ok
}

// Capacity returns the bucket size
func (tb *TokenBucket) Capacity() int { return tb.capacity }

// retryAfter is the time until one token is available again
func (tb *TokenBucket) retryAfter() time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	if tb.refillRate <= 0 {
		return time.Minute
	}
	missing := 1 - tb.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(tb.refillRate) * float64(time.Second))
}

// Limit is the capacity and refill rate of one endpoint
type Limit struct {
	Capacity   int `json:"capacity"`
	RefillRate int `json:"refill_rate"`
}

// RateLimiter keeps one bucket per client and endpoint
type RateLimiter struct {
	buckets map[string]*TokenBucket
	mutex   sync.RWMutex

	defaults       Limit
	endpointLimits map[string]Limit
}

// NewRateLimiter creates a rate limiter. Resolution is polled by editor
// tooling and gets twice the default; broadcasts reach every connected
// extension and get half.
func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*TokenBucket),
		defaults: Limit{Capacity: burst, RefillRate: rps},
		endpointLimits: map[string]Limit{
			"/v1/resolve":   {Capacity: burst * 2, RefillRate: rps * 2},
			"/v1/broadcast": {Capacity: max(burst/2, 1), RefillRate: max(rps/2, 1)},
			"/health":       {Capacity: 20, RefillRate: 2},
			"/metrics":      {Capacity: 20, RefillRate: 2},
		},
	}
}

// LimitFor returns the limit applied to an endpoint
func (rl *RateLimiter) LimitFor(endpoint string) Limit {
	if l, ok := rl.endpointLimits[endpoint]; ok {
		return l
	}
	return rl.defaults
}

// getBucket gets or creates a token bucket for a client+endpoint combination
func (rl *RateLimiter) getBucket(clientID, endpoint string) *TokenBucket {
	key := clientID + ":" + endpoint

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()
	if exists {
		return bucket
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	// Double-check after acquiring write lock
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	limit := rl.LimitFor(endpoint)
	bucket = NewTokenBucket(limit.Capacity, limit.RefillRate)
	rl.buckets[key] = bucket
	return bucket
}

// getClientID extracts client identifier from request
func (rl *RateLimiter) getClientID(c *fiber.Ctx) string {
	if apiKey := c.Get("X-API-Key"); apiKey != "" {
		return "api:" + apiKey
	}
	if auth := c.Get("Authorization"); auth != "" {
		return "auth:" + auth
	}
	return "ip:" + c.IP()
}

// Middleware returns a Fiber middleware for rate limiting
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := rl.getClientID(c)
		endpoint := c.Path()

		bucket := rl.getBucket(clientID, endpoint)
		allowed, remaining := bucket.Take()

		c.Set("X-RateLimit-Limit", strconv.Itoa(bucket.Capacity()))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			wait := bucket.retryAfter()
			seconds := max(int(wait.Round(time.Second)/time.Second), 1)

			appErr := domain.NewAppError(
				domain.ErrRateLimit,
				"Rate limit exceeded",
				429,
				map[string]any{
					"client_id":   clientID,
					"endpoint":    endpoint,
					"retry_after": seconds,
				},
			).WithContext(c.UserContext(), "rate_limit")

			c.Set("Retry-After", strconv.Itoa(seconds))
			c.Set("X-RateLimit-Reset", time.Now().Add(wait).UTC().Format(time.RFC3339))

			return c.Status(appErr.StatusCode).JSON(map[string]any{
				"status":  "error",
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
		}

		return c.Next()
	}
}

// CleanupOldBuckets removes buckets idle for longer than maxIdle
func (rl *RateLimiter) CleanupOldBuckets(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mutex.Unlock()
		if idle > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine starts a background routine to clean up old buckets
// Returns a stop function to cancel the routine
func (rl *RateLimiter) StartCleanupRoutine() (stop func()) {
	ticker := time.NewTicker(10 * time.Minute)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				rl.CleanupOldBuckets(time.Hour)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	limits := make(map[string]Limit, len(rl.endpointLimits))
	for k, v := range rl.endpointLimits {
		limits[k] = v
	}

	return map[string]any{
		"active_buckets":      len(rl.buckets),
		"default_capacity":    rl.defaults.Capacity,
		"default_refill_rate": rl.defaults.RefillRate,
		"endpoint_limits":     limits,
	}
}
