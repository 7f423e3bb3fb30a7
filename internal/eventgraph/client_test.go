package eventgraph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfort/riskgovernor/internal/domain"
)

func TestClientCorrelatedMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/mkt-1/correlated", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"marketId":"mkt-2","correlation":0.81,"category":"politics"},
			{"marketId":"mkt-3","correlation":0.55}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	markets, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "mkt-2", markets[0].MarketID)
	assert.Equal(t, 0.81, markets[0].Correlation)
}

func TestClientNon200IsDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	_, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependencyDegraded)
}

func TestClientUnreachableIsDegraded(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependencyDegraded)
}

type fakeGraph struct {
	markets []domain.CorrelatedMarket
	err     error
	calls   int
}

func (f *fakeGraph) CorrelatedMarkets(context.Context, string) ([]domain.CorrelatedMarket, error) {
	f.calls++
	return f.markets, f.err
}

type fakeCorrelationCache struct {
	entries  map[string][]domain.CorrelatedMarket
	getErr   error
	setErr   error
	setCalls int
}

func newFakeCorrelationCache() *fakeCorrelationCache {
	return &fakeCorrelationCache{entries: make(map[string][]domain.CorrelatedMarket)}
}

func (f *fakeCorrelationCache) Get(_ context.Context, marketID string) ([]domain.CorrelatedMarket, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	markets, ok := f.entries[marketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return markets, nil
}

func (f *fakeCorrelationCache) Set(_ context.Context, marketID string, markets []domain.CorrelatedMarket, _ time.Duration) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[marketID] = markets
	return nil
}

func TestCachedClientMissThenHit(t *testing.T) {
	inner := &fakeGraph{markets: []domain.CorrelatedMarket{{MarketID: "mkt-2", Correlation: 0.7}}}
	cache := newFakeCorrelationCache()
	c := NewCachedClient(inner, cache, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, inner.calls)

	second, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second lookup must be served from cache")
}

func TestCachedClientWriteFailureIsTolerated(t *testing.T) {
	inner := &fakeGraph{markets: []domain.CorrelatedMarket{{MarketID: "mkt-2"}}}
	cache := newFakeCorrelationCache()
	cache.setErr = errors.New("redis down")
	c := NewCachedClient(inner, cache, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	markets, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, 1, cache.setCalls)
}

func TestCachedClientDegradedCacheFallsThrough(t *testing.T) {
	inner := &fakeGraph{markets: []domain.CorrelatedMarket{{MarketID: "mkt-2"}}}
	cache := newFakeCorrelationCache()
	cache.getErr = errors.New("redis down")
	c := NewCachedClient(inner, cache, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	markets, err := c.CorrelatedMarkets(context.Background(), "mkt-1")
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, 1, inner.calls)
}
