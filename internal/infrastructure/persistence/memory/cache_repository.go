// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/nourishlab/nourish/internal/ports/outbound"
)

// DefaultTTL applies when Set is called with a zero TTL
const DefaultTTL = 24 * time.Hour

// CacheItem represents a cached item
type CacheItem struct {
	Value     []byte
	ExpiresAt time.Time
}

func (i CacheItem) expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CacheRepository implements an in-process cache for single-node deployments
type CacheRepository struct {
	data  map[string]CacheItem
	mutex sync.Mutex
	now   func() time.Time
}

// NewCacheRepository creates a new in-memory cache repository
func NewCacheRepository() *CacheRepository {
	return &CacheRepository{
		data: make(map[string]CacheItem),
		now:  time.Now,
	}
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// Get retrieves a value from cache
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.lookup(key)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	out := make([]byte, len(item.Value))
	copy(out, item.Value)
	return out, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.data[key] = CacheItem{Value: stored, ExpiresAt: r.now().Add(ttl)}
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, ok := r.lookup(key)
	return ok, nil
}

// Increment bumps a decimal counter. The TTL starts with the first increment
// and is not extended by later ones, matching INCR followed by EXPIRE in redis.
func (r *CacheRepository) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.lookup(key)
	if !ok {
		r.data[key] = CacheItem{Value: []byte("1"), ExpiresAt: r.now().Add(ttl)}
		return 1, nil
	}

	current, err := strconv.ParseInt(string(item.Value), 10, 64)
	if err != nil {
		return 0, err
	}
	current++
	r.data[key] = CacheItem{Value: []byte(strconv.FormatInt(current, 10)), ExpiresAt: item.ExpiresAt}
	return current, nil
}

// Purge drops expired entries and returns how many were removed
func (r *CacheRepository) Purge() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	removed := 0
	for key, item := range r.data {
		if item.expired(now) {
			delete(r.data, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (r *CacheRepository) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.data)
}

// lookup must be called with the mutex held
func (r *CacheRepository) lookup(key string) (CacheItem, bool) {
	item, ok := r.data[key]
	if !ok {
		return CacheItem{}, false
	}
	if item.expired(r.now()) {
		delete(r.data, key)
		return CacheItem{}, false
	}
	return item, true
}
