// internal/scraper/config_integration.go
package scraper

import (
	"fmt"

	"github.com/valpere/recipevault/internal/browser"
	"github.com/valpere/recipevault/internal/config"
	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/security"
)

// FetchCloser is a Fetcher that holds connections or a browser process.
type FetchCloser interface {
	Fetcher
	Close() error
}

// NewFetcher builds the fetcher selected by cfg.Mode.
func NewFetcher(cfg config.FetcherConfig) (FetchCloser, error) {
	switch cfg.Mode {
	case "", config.FetchModeHTTP:
		return NewHTTPClient(ClientConfig{
			Timeout:      cfg.Timeout,
			UserAgent:    cfg.UserAgent,
			Headers:      cfg.Headers,
			MaxBodyBytes: cfg.MaxBodyBytes,
			RateLimit:    cfg.RateLimit,
			RateBurst:    cfg.RateBurst,
			Targets:      security.NewValidator(cfg.Security),
		}), nil
	case config.FetchModeBrowser:
		bc := cfg.Browser
		if bc.Timeout == 0 {
			bc.Timeout = cfg.Timeout
		}
		if bc.UserAgent == "" {
			bc.UserAgent = cfg.UserAgent
		}
		return browser.NewChromeFetcher(&bc), nil
	default:
		return nil, fmt.Errorf("unsupported fetcher mode: %q", cfg.Mode)
	}
}

// NewEngineFromConfig builds the fetcher and an engine that retries
// transient failures per cfg.Retry and cfg.CircuitBreaker and refuses
// targets outside cfg.Security. The caller owns the returned fetcher and
// must Close it.
func NewEngineFromConfig(cfg config.FetcherConfig, opts ...EngineOption) (*Engine, FetchCloser, error) {
	fetcher, err := NewFetcher(cfg)
	if err != nil {
		return nil, nil, err
	}

	retrier := apperrors.NewService(cfg.Retry, cfg.CircuitBreaker)
	opts = append([]EngineOption{
		WithRetrier(retrier),
		WithTargetValidator(security.NewValidator(cfg.Security)),
	}, opts...)
	return NewEngine(fetcher, opts...), fetcher, nil
}
