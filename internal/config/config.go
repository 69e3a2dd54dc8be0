// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/recipevault/internal/storage"
)

// Load reads the configuration file at path, or starts from Default when
// path is empty, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		cfg, err = parseFile(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg, os.Getenv)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	cfg, err := parseFile(filename)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func parseFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return parse(data)
}

// LoadFromBytes loads configuration from YAML bytes. Keys that are absent
// keep their default values.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := expandEnvironmentVariables(string(data))
	if strings.TrimSpace(expanded) == "" {
		return cfg, nil
	}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SaveToWriter writes cfg as YAML.
func SaveToWriter(cfg *Config, writer io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

// SaveToFile writes cfg to filename, creating its directory.
func SaveToFile(cfg *Config, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer f.Close()

	return SaveToWriter(cfg, f)
}

// expandEnvironmentVariables substitutes ${VAR} and $VAR references
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyEnvOverrides honors the variables a hosting platform sets: PORT for
// the listener, DATABASE_URL for PostgreSQL and LOG_LEVEL.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		cfg.Server.ListenAddress = ":" + strings.TrimPrefix(port, ":")
	}
	if dsn := strings.TrimSpace(getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
		if storage.NormalizeDriver(cfg.Database.Driver) == storage.DriverMemory {
			cfg.Database.Driver = storage.DriverPostgres
		}
	}
	if level := strings.TrimSpace(getenv("LOG_LEVEL")); level != "" {
		cfg.Logging.Level = level
	}
}

// applyDefaults fills values explicitly set to zero in a file
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = def.Server.ListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}

	cfg.Fetcher.Mode = strings.ToLower(strings.TrimSpace(cfg.Fetcher.Mode))
	if cfg.Fetcher.Mode == "" {
		cfg.Fetcher.Mode = FetchModeHTTP
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = 30 * time.Second
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = def.Fetcher.UserAgent
	}
	if cfg.Fetcher.MaxBodyBytes == 0 {
		cfg.Fetcher.MaxBodyBytes = def.Fetcher.MaxBodyBytes
	}
	if cfg.Fetcher.Browser.Timeout == 0 {
		cfg.Fetcher.Browser.Timeout = cfg.Fetcher.Timeout
	}
	if cfg.Fetcher.Browser.UserAgent == "" {
		cfg.Fetcher.Browser.UserAgent = cfg.Fetcher.UserAgent
	}

	cfg.Database.Driver = storage.NormalizeDriver(cfg.Database.Driver)
	if cfg.Database.Table == "" {
		cfg.Database.Table = storage.DefaultTable
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = def.Metrics.Path
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = def.Metrics.Namespace
	}
}
