// Package fx fetches EUR→JOD exchange rates from an exchangerate.host
// compatible upstream, with a short cache window and a fixed fallback so a
// quote never fails just because the rate source is down.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rhaddadin/remitjo/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Result carries a rate plus its provenance. Live is false when the rate is
// the configured fallback, so callers can surface a degraded-rate warning
// without failing the whole quote.
type Result struct {
	Rate      decimal.Decimal
	FetchedAt time.Time
	Live      bool
}

// Provider is the rate lookup contract consumed by the quote and checkout
// services.
type Provider interface {
	GetRate(ctx context.Context, base, quote string) Result
}

// Client fetches live rates over HTTP and caches them in redis.
type Client struct {
	http     *http.Client
	baseURL  string
	fallback decimal.Decimal
	cacheTTL time.Duration
	redis    redis.Cmdable
}

// NewClient builds a rate client. redis may be nil, in which case every
// lookup goes to the upstream.
func NewClient(baseURL string, fallback decimal.Decimal, timeout, cacheTTL time.Duration, rdb redis.Cmdable) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		fallback: fallback,
		cacheTTL: cacheTTL,
		redis:    rdb,
	}
}

type upstreamResponse struct {
	Success   bool                       `json:"success"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Timestamp int64                      `json:"timestamp"`
	Base      string                     `json:"base"`
}

// GetRate returns the base→quote rate. It tries the cache, then the
// upstream, and degrades to the fallback constant on any failure. It never
// returns an error and never blocks past the client timeout.
func (c *Client) GetRate(ctx context.Context, base, quote string) Result {
	if cached, ok := c.cachedRate(ctx, base, quote); ok {
		observability.IncrementFXLookup("cache")
		return Result{Rate: cached, FetchedAt: time.Now().UTC(), Live: true}
	}

	rate, err := c.fetchRate(ctx, base, quote)
	if err != nil {
		zap.L().Warn("fx rate fetch failed, using fallback",
			zap.String("base", base),
			zap.String("quote", quote),
			zap.String("fallback", c.fallback.String()),
			zap.Error(err),
		)
		observability.IncrementFXLookup("fallback")
		return Result{Rate: c.fallback, FetchedAt: time.Now().UTC(), Live: false}
	}

	c.cacheRate(ctx, base, quote, rate)
	observability.IncrementFXLookup("live")
	return Result{Rate: rate, FetchedAt: time.Now().UTC(), Live: true}
}

func (c *Client) fetchRate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/latest?base=%s&symbols=%s", c.baseURL, url.QueryEscape(base), url.QueryEscape(quote))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate upstream returned %d", resp.StatusCode)
	}

	var body upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}
	if !body.Success {
		return decimal.Zero, fmt.Errorf("rate upstream reported failure")
	}
	rate, ok := body.Rates[quote]
	if !ok || rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("rate upstream returned no usable %s rate", quote)
	}
	return rate, nil
}

func (c *Client) cachedRate(ctx context.Context, base, quote string) (decimal.Decimal, bool) {
	if c.redis == nil {
		return decimal.Zero, false
	}
	val, err := c.redis.Get(ctx, cacheKey(base, quote)).Result()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("fx cache lookup failed", zap.Error(err))
		}
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(val)
	if err != nil || rate.Sign() <= 0 {
		return decimal.Zero, false
	}
	return rate, true
}

func (c *Client) cacheRate(ctx context.Context, base, quote string, rate decimal.Decimal) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(base, quote), rate.String(), c.cacheTTL).Err(); err != nil {
		zap.L().Warn("fx cache set failed", zap.Error(err))
	}
}

func cacheKey(base, quote string) string {
	return fmt.Sprintf("fx:%s:%s", base, quote)
}

// Static is a fixed-rate Provider for tests and local development.
type Static struct {
	Rate decimal.Decimal
	Live bool
}

func (s Static) GetRate(ctx context.Context, base, quote string) Result {
	return Result{Rate: s.Rate, FetchedAt: time.Now().UTC(), Live: s.Live}
}
