package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
	"github.com/redis/go-redis/v9"
)

// CorrelationCache implements domain.CorrelationCache using Redis string
// values holding the JSON-serialized correlation set for a market.
//
// Key schema:
//
//	correlations:{marketID} - JSON array of correlated markets
type CorrelationCache struct {
	rdb *redis.Client
}

// NewCorrelationCache creates a CorrelationCache backed by the given Client.
func NewCorrelationCache(c *Client) *CorrelationCache {
	return &CorrelationCache{rdb: c.Underlying()}
}

func correlationKey(marketID string) string { return "correlations:" + marketID }

// Get retrieves the cached correlation set for a market.
// It returns domain.ErrNotFound when the key does not exist.
func (cc *CorrelationCache) Get(ctx context.Context, marketID string) ([]domain.CorrelatedMarket, error) {
	data, err := cc.rdb.Get(ctx, correlationKey(marketID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get correlations %s: %w", marketID, err)
	}

	var markets []domain.CorrelatedMarket
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("redis: unmarshal correlations %s: %w", marketID, err)
	}
	return markets, nil
}

// Set stores the correlation set for a market with the given TTL.
func (cc *CorrelationCache) Set(ctx context.Context, marketID string, markets []domain.CorrelatedMarket, ttl time.Duration) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal correlations %s: %w", marketID, err)
	}

	if err := cc.rdb.Set(ctx, correlationKey(marketID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set correlations %s: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CorrelationCache = (*CorrelationCache)(nil)
