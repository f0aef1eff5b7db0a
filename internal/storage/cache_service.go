package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/portfolio-reconciler/internal/types"
	"github.com/redis/go-redis/v9"
)

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyPortfolio is for computed investor portfolios
	CacheKeyPortfolio CacheKeyType = "portfolio"
)

// GenerateCacheKey generates a cache key for a given type and parameters.
// Format: <type>:<param1>:<param2>:...
// Parameters are expected in canonical form already; opaque identities are
// case-sensitive, so nothing is lowercased here.
func GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := append([]string{string(keyType)}, params...)
	return strings.Join(parts, ":")
}

// PortfolioCache stores computed portfolios in Redis as JSON
type PortfolioCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewPortfolioCache creates a new portfolio cache
func NewPortfolioCache(redis *RedisCache, ttl time.Duration) *PortfolioCache {
	return &PortfolioCache{
		redis: redis,
		ttl:   ttl,
	}
}

// GetPortfolio returns the cached portfolio for a canonical investor identity
func (c *PortfolioCache) GetPortfolio(ctx context.Context, investor string) (*types.PortfolioResult, bool, error) {
	data, err := c.redis.Get(ctx, GenerateCacheKey(CacheKeyPortfolio, investor))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}

	var result types.PortfolioResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached portfolio: %w", err)
	}
	if result.Portfolio == nil {
		return nil, false, nil
	}

	return &result, true, nil
}

// SetPortfolio stores a portfolio with the configured TTL
func (c *PortfolioCache) SetPortfolio(ctx context.Context, investor string, result *types.PortfolioResult) error {
	if result == nil {
		return nil
	}

	stored := *result
	stored.Cached = false
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}

	return c.redis.Set(ctx, GenerateCacheKey(CacheKeyPortfolio, investor), data, c.ttl)
}

// InvalidatePortfolio removes the cached portfolio of an investor
func (c *PortfolioCache) InvalidatePortfolio(ctx context.Context, investor string) error {
	return c.redis.Del(ctx, GenerateCacheKey(CacheKeyPortfolio, investor))
}

// TTL returns the configured TTL for this cache
func (c *PortfolioCache) TTL() time.Duration {
	return c.ttl
}
