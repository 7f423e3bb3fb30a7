package eventgraph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// CachedClient fronts an Event Graph source with a correlation cache.
// Cache misses fall through to the inner source; cache write failures are
// logged and ignored so a degraded cache never degrades the lookup itself.
type CachedClient struct {
	inner  domain.EventGraph
	cache  domain.CorrelationCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedClient wraps inner with cache. A zero ttl defaults to 5 minutes.
func NewCachedClient(inner domain.EventGraph, cache domain.CorrelationCache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedClient{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// CorrelatedMarkets returns the cached correlation set when fresh, otherwise
// queries the inner source and populates the cache.
func (c *CachedClient) CorrelatedMarkets(ctx context.Context, marketID string) ([]domain.CorrelatedMarket, error) {
	markets, err := c.cache.Get(ctx, marketID)
	if err == nil {
		return markets, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("correlation cache read failed", "market_id", marketID, "error", err)
	}

	markets, err = c.inner.CorrelatedMarkets(ctx, marketID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, marketID, markets, c.ttl); err != nil {
		c.logger.Warn("correlation cache write failed", "market_id", marketID, "error", err)
	}
	return markets, nil
}

var _ domain.EventGraph = (*CachedClient)(nil)
