// Package eventgraph provides the REST client for the Event Graph service,
// which maps a market to the set of markets statistically correlated with
// it. The lookup is best-effort: callers tolerate failure and proceed with
// an empty correlation set.
package eventgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// Client is the REST client for the Event Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an Event Graph client.
//
// baseURL is the API root, e.g. "http://eventgraph.internal:8090".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CorrelatedMarkets returns the markets correlated with the given one.
func (c *Client) CorrelatedMarkets(ctx context.Context, marketID string) ([]domain.CorrelatedMarket, error) {
	path := fmt.Sprintf("/markets/%s/correlated", url.PathEscape(marketID))

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("eventgraph: correlated markets %s: %w", marketID, err)
	}

	var markets []domain.CorrelatedMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("eventgraph: decode correlated markets: %w", err)
	}
	return markets, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDependencyDegraded, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrDependencyDegraded, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

var _ domain.EventGraph = (*Client)(nil)
