// Package providers talks to the external opportunities and live-odds feed.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
)

var (
	ErrUnavailable = errors.New("provider unavailable")
	ErrDisabled    = errors.New("provider not configured")
)

// Cache is the subset of the cache service the client needs.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type OddsQuote struct {
	Market    markets.Market `json:"market"`
	Line      *float64       `json:"line,omitempty"`
	Odds      float64        `json:"odds"`
	Bookmaker string         `json:"bookmaker,omitempty"`
}

// Opportunity is an upcoming fixture offered by the feed.
type Opportunity struct {
	ID           string      `json:"id"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	League       string      `json:"league"`
	CommenceTime time.Time   `json:"commence_time"`
	Referee      string      `json:"referee,omitempty"`
	Odds         []OddsQuote `json:"odds,omitempty"`
}

// Request converts the opportunity into an engine request.
func (o Opportunity) Request() engine.Request {
	return engine.Request{
		Home:         o.HomeTeam,
		Away:         o.AwayTeam,
		League:       o.League,
		CommenceTime: o.CommenceTime,
		Referee:      o.Referee,
	}
}

// BestPrices keeps the highest quote per market.
func BestPrices(quotes []OddsQuote) map[markets.Market]OddsQuote {
	out := make(map[markets.Market]OddsQuote, len(quotes))
	for _, q := range quotes {
		if q.Odds <= 1 || !q.Market.Valid() {
			continue
		}
		if cur, ok := out[q.Market]; !ok || q.Odds > cur.Odds {
			out[q.Market] = q
		}
	}
	return out
}

type opportunitiesResponse struct {
	Data []Opportunity `json:"data"`
}

type oddsResponse struct {
	MatchID string      `json:"match_id"`
	Odds    []OddsQuote `json:"odds"`
}

type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	Retries          int
	Backoff          time.Duration
	Rate             float64
	BreakerThreshold int
	CacheTTL         time.Duration
}

func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		BaseURL:          strings.TrimRight(cfg.OpportunitiesAPIURL, "/"),
		APIKey:           cfg.OpportunitiesAPIKey,
		Timeout:          cfg.ExternalAPITimeout,
		Retries:          cfg.ExternalAPIRetries,
		Backoff:          cfg.ExternalAPIBackoff,
		Rate:             cfg.ExternalAPIRate,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		CacheTTL:         cfg.CacheTTL,
	}
}

// OpportunityClient fetches opportunities and live odds behind a rate limiter,
// a circuit breaker and bounded retries. Responses are cached when a cache is set.
type OpportunityClient struct {
	httpClient *http.Client
	cache      Cache
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cfg        Config
	logger     *logrus.Logger
}

func NewOpportunityClient(cfg Config, cache Cache, logger *logrus.Logger) *OpportunityClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "opportunities-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &OpportunityClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    breaker,
		cfg:        cfg,
		logger:     logger,
	}
}

func (c *OpportunityClient) Enabled() bool {
	return c.cfg.BaseURL != ""
}

func (c *OpportunityClient) State() gobreaker.State {
	return c.breaker.State()
}

// Opportunities lists upcoming fixtures from the feed.
func (c *OpportunityClient) Opportunities(ctx context.Context) ([]Opportunity, error) {
	var resp opportunitiesResponse
	if err := c.cachedGet(ctx, "opportunities:list", "/opportunities", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// LiveOdds returns the current quotes for one fixture. Live odds are never cached.
func (c *OpportunityClient) LiveOdds(ctx context.Context, matchID string) ([]OddsQuote, error) {
	var resp oddsResponse
	if err := c.get(ctx, "/odds/"+url.PathEscape(matchID), &resp); err != nil {
		return nil, err
	}
	return resp.Odds, nil
}

func (c *OpportunityClient) cachedGet(ctx context.Context, key, path string, dest interface{}) error {
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, dest); err == nil {
			c.logger.WithField("key", key).Debug("Opportunities served from cache")
			return nil
		}
	}
	if err := c.get(ctx, path, dest); err != nil {
		return err
	}
	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.Set(ctx, key, dest, c.cfg.CacheTTL); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Failed to cache provider response")
		}
	}
	return nil
}

// statusError is a non-2xx response. Client errors other than 429 are not retried.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func (e *statusError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

func (c *OpportunityClient) get(ctx context.Context, path string, dest interface{}) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, path, dest)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit %s", ErrUnavailable, c.breaker.State())
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// doWithRetry makes one attempt plus up to cfg.Retries retries with
// exponential backoff. Client errors are not retried.
func (c *OpportunityClient) doWithRetry(ctx context.Context, path string, dest interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.Backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := c.do(ctx, path, dest)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Provider request failed")
	}
	return fmt.Errorf("failed after %d attempts: %w", c.cfg.Retries+1, lastErr)
}

func (c *OpportunityClient) do(ctx context.Context, path string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Provider request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &statusError{status: resp.StatusCode, body: snippet}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
