// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/security"
	"github.com/valpere/recipevault/internal/utils"
	"github.com/valpere/recipevault/pkg/types"
)

// Fetcher retrieves the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ClientConfig defines configuration options for the HTTP client
type ClientConfig struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64
	RateLimit    float64 // requests per second per host
	RateBurst    int
	// Targets, when set, is applied to every redirect hop, and to every
	// dialed address if it blocks private networks.
	Targets      *security.Validator
}

// HTTPClient fetches pages over HTTP. Failures are not retried.
type HTTPClient struct {
	httpClient   *http.Client
	userAgent    string
	headers      map[string]string
	maxBodyBytes int64
	rateLimiter  *utils.RateLimiter
	logger       zerolog.Logger
}

// NewHTTPClient creates a new HTTP client with the specified configuration
func NewHTTPClient(config ClientConfig) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 10 * 1024 * 1024
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 5
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{Timeout: config.Timeout, Transport: transport}

	if config.Targets != nil {
		httpClient.CheckRedirect = config.Targets.CheckRedirect
		if config.Targets.BlocksPrivateNetworks() {
			// A proxy would resolve the target itself, so connect directly.
			transport.Proxy = nil
			dialer.Control = config.Targets.DialControl
		}
	}

	return &HTTPClient{
		httpClient:   httpClient,
		userAgent:    config.UserAgent,
		headers:      config.Headers,
		maxBodyBytes: config.MaxBodyBytes,
		rateLimiter:  utils.NewRateLimiter(config.RateLimit, config.RateBurst),
		logger:       utils.NewComponentLogger("http-fetcher"),
	}
}

// Fetch performs a GET and returns the body decoded to UTF-8.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (string, error) {
	if err := types.ValidateURL(targetURL); err != nil {
		return "", apperrors.Fetch(err, "invalid target %q", targetURL)
	}
	if err := c.rateLimiter.Wait(ctx, hostOf(targetURL)); err != nil {
		return "", apperrors.Fetch(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", apperrors.Fetch(err, "build request")
	}
	c.setRequestHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", targetURL).Msg("request failed")
		return "", apperrors.Fetch(err, "GET %s", targetURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: targetURL}
		return "", apperrors.Fetch(httpErr, "GET %s", targetURL)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, c.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", apperrors.Fetch(err, "decode body of %s", targetURL)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", apperrors.Fetch(err, "read body of %s", targetURL)
	}

	c.logger.Debug().
		Str("url", targetURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("page fetched")
	return string(data), nil
}

// setRequestHeaders configures browser-like request headers
func (c *HTTPClient) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// HTTPError represents a non-success response status.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500
}
