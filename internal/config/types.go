// internal/config/types.go
package config

import (
	"time"

	"github.com/valpere/recipevault/internal/browser"
	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/security"
	"github.com/valpere/recipevault/internal/storage"
	"github.com/valpere/recipevault/internal/utils"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server" json:"server"`
	Fetcher  FetcherConfig   `yaml:"fetcher" json:"fetcher"`
	Database storage.Config  `yaml:"database" json:"database"`
	Logging  utils.LogConfig `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// ServerConfig configures the REST listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address" json:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit" json:"rate_limit"` // requests per second
	RateBurst       int           `yaml:"rate_burst" json:"rate_burst"`
	CORSOrigins     []string      `yaml:"cors_origins" json:"cors_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// ResponseHeadroom is the part of server.write_timeout kept back from a
// scrape so the error response can still be written.
const ResponseHeadroom = 5 * time.Second

// ScrapeDeadline bounds one scrape request. Zero means no bound.
func (s ServerConfig) ScrapeDeadline() time.Duration {
	if s.WriteTimeout <= ResponseHeadroom {
		return 0
	}
	return s.WriteTimeout - ResponseHeadroom
}

// Fetcher modes.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// FetcherConfig configures how recipe pages are retrieved.
type FetcherConfig struct {
	Mode         string                `yaml:"mode" json:"mode"`
	Timeout      time.Duration         `yaml:"timeout" json:"timeout"`
	UserAgent    string                `yaml:"user_agent" json:"user_agent"`
	Headers      map[string]string     `yaml:"headers,omitempty" json:"headers,omitempty"`
	MaxBodyBytes int64                 `yaml:"max_body_bytes" json:"max_body_bytes"`
	RateLimit    float64               `yaml:"rate_limit" json:"rate_limit"`
	RateBurst    int                   `yaml:"rate_burst" json:"rate_burst"`
	Browser      browser.BrowserConfig `yaml:"browser" json:"browser"`

	Retry          apperrors.RetryConfig          `yaml:"retry" json:"retry"`
	CircuitBreaker apperrors.CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	Security       security.Config                `yaml:"security" json:"security"`
}

// WorstCaseDuration is how long one scrape may take when every attempt times
// out: each attempt plus the backoff between attempts.
func (f FetcherConfig) WorstCaseDuration() time.Duration {
	timeout := f.Timeout
	if f.Mode == FetchModeBrowser && f.Browser.Timeout > 0 {
		timeout = f.Browser.Timeout
	}
	retries := f.Retry.MaxRetries
	if retries < 0 {
		retries = 0
	}

	total := time.Duration(retries+1) * timeout
	delay := f.Retry.BaseDelay
	factor := f.Retry.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 0; i < retries; i++ {
		d := delay
		if maxDelay := f.Retry.MaxDelay; maxDelay <= 0 {
			if d > apperrors.DefaultRetryConfig().MaxDelay {
				d = apperrors.DefaultRetryConfig().MaxDelay
			}
		} else if d > maxDelay {
			d = maxDelay
		}
		total += d
		delay = time.Duration(float64(delay) * factor)
	}
	return total
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
		},
		Fetcher: FetcherConfig{
			Mode:         FetchModeHTTP,
			Timeout:      30 * time.Second,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MaxBodyBytes: 10 << 20,
			RateLimit:    2,
			RateBurst:    5,
			Browser:      *browser.DefaultBrowserConfig(),

			Retry:          apperrors.DefaultRetryConfig(),
			CircuitBreaker: apperrors.DefaultCircuitBreakerConfig(),
			Security:       security.DefaultConfig(),
		},
		Database: storage.Config{
			Driver:          storage.DriverMemory,
			Table:           storage.DefaultTable,
			Database:        "recipevault",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		},
		Logging: utils.LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "recipevault",
		},
	}
}
