package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the mailbridge server.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Gmail   GmailConfig   `yaml:"gmail"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr               string        `yaml:"addr"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	// MaxBodyBytes caps JSON request bodies, which may carry base64 attachments.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// GmailConfig configures outbound Gmail API calls.
type GmailConfig struct {
	// Endpoint overrides the Gmail API base URL; empty means Google's.
	Endpoint         string `yaml:"endpoint"`
	FetchConcurrency int    `yaml:"fetch_concurrency"`
}

// MetricsConfig configures the dedicated metrics listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig configures log output.
type LogConfig struct {
	Format string `yaml:"format"`
	Debug  bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    40 << 20,
		},
		Gmail: GmailConfig{
			FetchConcurrency: 8,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Log: LogConfig{
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is not empty) and then the environment. Command line flags are
// applied by the caller on top of the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MAILBRIDGE_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.HTTP.CORSAllowedOrigins = SplitList(v)
	}
	if v := os.Getenv("GMAIL_API_ENDPOINT"); v != "" {
		c.Gmail.Endpoint = v
	}
	if v := os.Getenv("GMAIL_FETCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GMAIL_FETCH_CONCURRENCY %q: %w", v, err)
		}
		c.Gmail.FetchConcurrency = n
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		c.Metrics.Enabled = enabled
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http address is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.HTTP.ShutdownTimeout)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body size must be positive, got %d", c.HTTP.MaxBodyBytes)
	}
	if c.Gmail.FetchConcurrency < 1 {
		return fmt.Errorf("gmail fetch concurrency must be at least 1, got %d", c.Gmail.FetchConcurrency)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Log.Format)
	}
	return nil
}

// SplitList parses a comma separated list, trimming whitespace and dropping
// empty elements. It returns nil when nothing remains.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
