package rpc

import (
	"bitfrost-bridge/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the gateway answers 404.
var ErrNotFound = errors.New("not found")

// Client provides a standardized REST client with rate limiting, retries, and structured logging
type Client struct {
	Endpoint    string
	ApiKey      string
	RateLimiter *rate.Limiter
	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration
	Logger      *zerolog.Logger
	HTTPClient  *http.Client
}

// NewClient creates a new client with the given configuration
func NewClient(endpoint, apiKey string, rateLimit float64, maxRetries int, retryDelay, httpTimeout time.Duration, log *zerolog.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		Endpoint:    strings.TrimRight(endpoint, "/"),
		ApiKey:      apiKey,
		RateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		MaxRetries:  maxRetries,
		RetryDelay:  retryDelay,
		HTTPTimeout: httpTimeout,
		Logger:      logger.OrNop(log),
		HTTPClient: &http.Client{
			Timeout: httpTimeout,
			Transport: &CustomTransport{
				Base:   http.DefaultTransport,
				ApiKey: apiKey,
			},
		},
	}
}

// CustomTransport adds API key authentication to HTTP requests
type CustomTransport struct {
	Base   http.RoundTripper
	ApiKey string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if t.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.ApiKey)
	}
	return t.Base.RoundTrip(req)
}

// permanentError stops the retry loop
type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Get performs a GET with rate limiting, retries, and error handling and
// decodes the JSON body into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.Endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	c.Logger.Debug().
		Str("url", target).
		Msg("Making REST call")

	err := c.retry(ctx, func() error {
		// Wait for rate limit
		if err := c.RateLimiter.Wait(ctx); err != nil {
			return permanentError{fmt.Errorf("rate limit error: %w", err)}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return permanentError{err}
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return permanentError{ErrNotFound}
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return permanentError{fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))}
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, resp.Status)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return permanentError{fmt.Errorf("failed to decode response: %w", err)}
		}
		return nil
	})

	var perm permanentError
	if errors.As(err, &perm) {
		err = perm.err
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.Logger.Error().
			Err(err).
			Str("url", target).
			Msg("REST call failed")
	}
	return err
}

// retry executes a function with retry logic; permanent errors and context
// cancellation end it early
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < c.MaxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) || i == c.MaxRetries-1 {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
	return err
}

// Close closes the HTTP client connections
func (c *Client) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}
