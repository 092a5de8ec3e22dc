package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request keyed by user or client IP may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	perMin  int
	burst   int
	now     func() time.Time
}

// NewMemoryLimiter refills requestsPerMin tokens per minute with the given burst
func NewMemoryLimiter(requestsPerMin, burst int) *MemoryLimiter {
	l := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	l.SetLimits(requestsPerMin, burst)
	return l
}

// SetLimits changes the refill rate for new and existing buckets
func (l *MemoryLimiter) SetLimits(requestsPerMin, burst int) {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(float64(requestsPerMin) / 60)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = limit
	l.perMin = requestsPerMin
	l.burst = burst
	now := l.now()
	for _, b := range l.buckets {
		b.limiter.SetLimitAt(now, limit)
		b.limiter.SetBurstAt(now, burst)
	}
}

// Allow takes one token from the key's bucket
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return Decision{Allowed: false, Limit: l.perMin}, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Decision{Allowed: false, Limit: l.perMin, RetryAfter: delay}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     l.perMin,
		Remaining: int(b.limiter.TokensAt(now)),
	}, nil
}

// Cleanup drops buckets idle for longer than idle and returns how many were removed
func (l *MemoryLimiter) Cleanup(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// WindowLimiter counts requests per fixed one-minute window in a shared cache,
// so the limit holds across replicas when the cache is redis
type WindowLimiter struct {
	cache  outbound.CacheRepository
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.RWMutex
}

// NewWindowLimiter allows requestsPerMin plus burst requests per minute
func NewWindowLimiter(cache outbound.CacheRepository, requestsPerMin, burst int) *WindowLimiter {
	l := &WindowLimiter{cache: cache, window: time.Minute, now: time.Now}
	l.SetLimits(requestsPerMin, burst)
	return l
}

// SetLimits changes the per-window allowance
func (l *WindowLimiter) SetLimits(requestsPerMin, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = requestsPerMin + burst
}

// Allow increments the key's counter for the current window
func (l *WindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.RLock()
	limit := l.limit
	l.mu.RUnlock()

	now := l.now()
	start := now.Truncate(l.window)
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, start.Unix())

	count, err := l.cache.Increment(ctx, windowKey, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	if count > int64(limit) {
		return Decision{Allowed: false, Limit: limit, RetryAfter: start.Add(l.window).Sub(now)}, nil
	}
	return Decision{Allowed: true, Limit: limit, Remaining: limit - int(count)}, nil
}

// NewLimiter picks the shared window limiter when configured, else per-process buckets
func NewLimiter(cfg config.RateLimitConfig, cache outbound.CacheRepository, logger *zap.Logger) Limiter {
	if cfg.UseRedis && cache != nil {
		logger.Info("Using shared window rate limiter", zap.Int("requests_per_min", cfg.RequestsPerMin))
		return NewWindowLimiter(cache, cfg.RequestsPerMin, cfg.BurstSize)
	}
	logger.Info("Using in-memory token bucket rate limiter",
		zap.Int("requests_per_min", cfg.RequestsPerMin),
		zap.Int("burst", cfg.BurstSize),
	)
	return NewMemoryLimiter(cfg.RequestsPerMin, cfg.BurstSize)
}
