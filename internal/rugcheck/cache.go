package rugcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/observability"
)

// Cache stores risk reports by mint.
type Cache interface {
	Get(ctx context.Context, mint string) (*domain.RiskReport, bool, error)
	Set(ctx context.Context, mint string, report *domain.RiskReport, ttl time.Duration) error
}

// CachingFetcher serves reports from a cache and falls back to next.
// Cache failures are logged and never fail a lookup. Errors from next are
// not cached.
type CachingFetcher struct {
	next   Fetcher
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachingFetcher wraps next with cache.
func NewCachingFetcher(next Fetcher, cache Cache, ttl time.Duration, logger zerolog.Logger) *CachingFetcher {
	return &CachingFetcher{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "rugcheck_cache").Logger(),
	}
}

var _ Fetcher = (*CachingFetcher)(nil)

// Report returns the cached report or fetches and stores a fresh one.
func (f *CachingFetcher) Report(ctx context.Context, mint string) (*domain.RiskReport, error) {
	report, ok, err := f.cache.Get(ctx, mint)
	if err != nil {
		f.logger.Warn().Err(err).Str("mint", mint).Msg("cache get failed")
	}
	if ok {
		observability.RecordRiskCache(true)
		return report, nil
	}
	observability.RecordRiskCache(false)

	report, err = f.next.Report(ctx, mint)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(ctx, mint, report, f.ttl); err != nil {
		f.logger.Warn().Err(err).Str("mint", mint).Msg("cache set failed")
	}
	return report, nil
}

// MemoryCache is a process-local Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	report    domain.RiskReport
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock creates a MemoryCache that reads time from now.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get returns a copy of the cached report if present and not expired.
func (c *MemoryCache) Get(_ context.Context, mint string) (*domain.RiskReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[mint]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, mint)
		return nil, false, nil
	}

	report := e.report
	report.Risks = append([]domain.Risk(nil), e.report.Risks...)
	return &report, true, nil
}

// Set stores a copy of report for ttl. A non-positive ttl is a no-op.
func (c *MemoryCache) Set(_ context.Context, mint string, report *domain.RiskReport, ttl time.Duration) error {
	if ttl <= 0 || report == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *report
	stored.Risks = append([]domain.Risk(nil), report.Risks...)
	c.entries[mint] = memoryEntry{report: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

// RedisCache stores JSON-encoded reports in Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// DefaultRedisPrefix namespaces report keys.
const DefaultRedisPrefix = "rugcheck:report:"

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: DefaultRedisPrefix}
}

// Get returns the cached report, (nil, false, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, mint string) (*domain.RiskReport, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+mint).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var report domain.RiskReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, true, nil
}

// Set stores report for ttl. A non-positive ttl is a no-op.
func (c *RedisCache) Set(ctx context.Context, mint string, report *domain.RiskReport, ttl time.Duration) error {
	if ttl <= 0 || report == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+mint, string(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
