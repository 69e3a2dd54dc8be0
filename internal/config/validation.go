// internal/config/validation.go
package config

import (
	"fmt"
	"strings"

	"github.com/valpere/recipevault/internal/storage"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("%s: %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

// Valid reports whether no errors were collected.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) add(field, value, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if result.Valid() {
		return nil
	}
	return formatValidationError(result)
}

// ValidateWithDetails returns the individual errors and warnings.
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{}
	c.validateServer(result)
	c.validateFetcher(result)
	c.validateDatabase(result)
	c.validateLogging(result)
	c.validateMetrics(result)
	return result
}

func (c *Config) validateServer(result *ValidationResult) {
	s := c.Server
	if s.ListenAddress == "" {
		result.add("server.listen_address", "", "listen address is required")
	}
	if s.RateLimit < 0 {
		result.add("server.rate_limit", fmt.Sprint(s.RateLimit), "rate limit cannot be negative")
	}
	if s.RateLimit > 0 && s.RateBurst <= 0 {
		result.add("server.rate_burst", fmt.Sprint(s.RateBurst), "burst must be positive when rate limiting is enabled")
	}
	if s.MaxBodyBytes < 0 {
		result.add("server.max_body_bytes", fmt.Sprint(s.MaxBodyBytes), "body limit cannot be negative")
	}
	if s.RateLimit == 0 {
		result.Warnings = append(result.Warnings, "server rate limiting is disabled")
	}
	if s.WriteTimeout < 0 {
		result.add("server.write_timeout", s.WriteTimeout.String(), "write timeout cannot be negative")
	}
	if s.WriteTimeout > 0 {
		budget := c.Fetcher.WorstCaseDuration()
		if deadline := s.ScrapeDeadline(); deadline < budget {
			result.add("server.write_timeout", s.WriteTimeout.String(),
				"must exceed the worst-case scrape time %s plus %s for the response", budget, ResponseHeadroom)
		}
	}
}

func (c *Config) validateFetcher(result *ValidationResult) {
	f := c.Fetcher
	switch f.Mode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		result.add("fetcher.mode", f.Mode, "mode must be %q or %q", FetchModeHTTP, FetchModeBrowser)
	}
	if f.Timeout < 0 {
		result.add("fetcher.timeout", f.Timeout.String(), "timeout cannot be negative")
	}
	if f.RateLimit <= 0 {
		result.add("fetcher.rate_limit", fmt.Sprint(f.RateLimit), "outgoing rate limit must be positive")
	}
	if f.RateBurst <= 0 {
		result.add("fetcher.rate_burst", fmt.Sprint(f.RateBurst), "burst must be positive")
	}
	if f.MaxBodyBytes < 0 {
		result.add("fetcher.max_body_bytes", fmt.Sprint(f.MaxBodyBytes), "body limit cannot be negative")
	}
	if f.Retry.MaxRetries < 0 || f.Retry.BaseDelay < 0 {
		result.add("fetcher.retry", fmt.Sprint(f.Retry.MaxRetries), "retry settings cannot be negative")
	}
	if f.CircuitBreaker.MaxFailures > 0 && f.CircuitBreaker.ResetTimeout <= 0 {
		result.add("fetcher.circuit_breaker.reset_timeout", f.CircuitBreaker.ResetTimeout.String(), "reset timeout must be positive when the breaker is enabled")
	}
	for _, scheme := range f.Security.AllowedSchemes {
		if s := strings.ToLower(scheme); s != "http" && s != "https" {
			result.add("fetcher.security.allowed_schemes", scheme, "only http and https can be fetched")
		}
	}
	if f.Security.MaxURLLength < 0 {
		result.add("fetcher.security.max_url_length", fmt.Sprint(f.Security.MaxURLLength), "URL length limit cannot be negative")
	}
	if f.Mode == FetchModeBrowser && f.Browser.MaxTabs < 0 {
		result.add("fetcher.browser.max_tabs", fmt.Sprint(f.Browser.MaxTabs), "tab count cannot be negative")
	}
}

func (c *Config) validateDatabase(result *ValidationResult) {
	d := c.Database
	switch d.Driver {
	case storage.DriverPostgres, storage.DriverMySQL, storage.DriverSQLite, storage.DriverMongoDB:
		if d.DSN == "" {
			result.add("database.dsn", "", "connection string is required for driver %s", d.Driver)
		}
	case storage.DriverMemory:
		result.Warnings = append(result.Warnings, "recipes are kept in memory and lost on restart")
	default:
		result.add("database.driver", d.Driver, "unsupported driver")
	}
	if err := storage.ValidateIdentifier(d.Table); err != nil {
		result.add("database.table", d.Table, "table must be a plain identifier")
	}
	if d.MaxOpenConns < 0 || d.MaxIdleConns < 0 {
		result.add("database.max_open_conns", fmt.Sprint(d.MaxOpenConns), "connection limits cannot be negative")
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.add("logging.level", c.Logging.Level, "level must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		result.add("logging.format", c.Logging.Format, "format must be console or json")
	}
}

func (c *Config) validateMetrics(result *ValidationResult) {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		result.add("metrics.path", c.Metrics.Path, "path must start with /")
	}
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *ValidationResult) error {
	var errorMsg strings.Builder

	errorMsg.WriteString("configuration validation failed:\n")
	for i, err := range result.Errors {
		errorMsg.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return fmt.Errorf("%s", errorMsg.String())
}
