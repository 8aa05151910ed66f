// Package quotes fetches mark-to-market price snapshots from an HTTP quote feed.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-analytics-terminal/internal/config"
)

const (
	defaultPath = "/prices"
	maxRetries  = 3
)

// ErrNoBaseURL is returned by NewClient when the feed has no base URL.
var ErrNoBaseURL = errors.New("quote feed base url is not configured")

// ClientInterface defines the quote feed operations used by the poller.
type ClientInterface interface {
	FetchSnapshot(ctx context.Context) (map[string]any, error)
}

// Client is a rate limited REST client for the quote feed.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	path    string
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
	// backoff is the first retry delay, doubled on every attempt.
	backoff time.Duration
}

var _ ClientInterface = (*Client)(nil)

// NewClient creates a new quote feed client.
func NewClient(cfg *config.Quotes, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	logger = logger.Named("quotes")
	logger.Info("Using quote feed", zap.String("base_url", cfg.BaseURL), zap.String("path", path))

	return &Client{
		client:  resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(30 * time.Second),
		path:    path,
		apiKey:  cfg.ApiKey,
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
		backoff: time.Second,
	}, nil
}

// FetchSnapshot downloads the current price snapshot. The payload uses the
// same shapes the market import accepts.
func (c *Client) FetchSnapshot(ctx context.Context) (map[string]any, error) {
	snapshot := make(map[string]any)

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		ForceContentType("application/json").
		SetResult(&snapshot)
	if c.apiKey != "" {
		req.SetHeader("X-API-KEY", c.apiKey)
	}

	if _, err := c.doRequest(ctx, http.MethodGet, c.path, req); err != nil {
		return nil, fmt.Errorf("failed to fetch price snapshot: %w", err)
	}
	return snapshot, nil
}

// doRequest executes req with rate limiting, retrying throttling and server errors.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			shouldRetry := false
			switch {
			case statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot:
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			case statusCode >= http.StatusInternalServerError:
				shouldRetry = true
			}
			if !shouldRetry {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			if err == nil {
				err = fmt.Errorf("status %s", resp.Status())
			}
		}

		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
