// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultBaseURL is the production API endpoint used when SUDO_API_BASE_URL is unset.
	DefaultBaseURL = "https://sudoapp.dev/api"
	// APIKeyEnv names the environment variable holding the bearer token.
	APIKeyEnv = "SUDO_API_KEY"
	// BaseURLEnv names the environment variable overriding the API endpoint.
	BaseURLEnv = "SUDO_API_BASE_URL"
	// defaultRequestTimeout bounds every HTTP call, streaming ones included.
	defaultRequestTimeout = 120 * time.Second
	// defaultWarmupRequests is the number of unrecorded priming calls per model.
	defaultWarmupRequests = 2
)

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New(APIKeyEnv + " environment variable is required")

// Config represents the top-level application configuration.
type Config struct {
	APIKey               string  `mapstructure:"apiKey" json:"apiKey" yaml:"apiKey"`
	BaseURL              string  `mapstructure:"baseURL" json:"baseURL" yaml:"baseURL"`
	TimeoutSeconds       int     `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout"`
	LogFile              string  `mapstructure:"logFile" json:"logFile,omitempty" yaml:"logFile"`
	Debug                bool    `mapstructure:"debug" json:"debug" yaml:"debug"`
	WarmupRequests       int     `mapstructure:"warmupRequests" json:"warmupRequests" yaml:"warmupRequests"`
	RateLimit            float64 `mapstructure:"rateLimit" json:"rateLimit,omitempty" yaml:"rateLimit"`
	MetricsAddr          string  `mapstructure:"metricsAddr" json:"metricsAddr,omitempty" yaml:"metricsAddr"`
	ThroughputModelLimit int     `mapstructure:"throughputModelLimit" json:"throughputModelLimit,omitempty" yaml:"throughputModelLimit"`
	ConfigPath           string  `mapstructure:"-" json:"-" yaml:"-"`
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIBaseURL returns the configured endpoint without a trailing slash.
func (c Config) APIBaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return DefaultBaseURL
	}
	return base
}

// LogFilePath returns the log file path, or "" for stdout-only logging.
func (c Config) LogFilePath() string {
	return strings.TrimSpace(c.LogFile)
}

// Validate reports configuration errors that must abort before any request is sent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(c.APIBaseURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.WarmupRequests < 0 {
		return fmt.Errorf("warmupRequests must be >= 0, got %d", c.WarmupRequests)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit must be >= 0, got %g", c.RateLimit)
	}
	if c.ThroughputModelLimit < 0 {
		return fmt.Errorf("throughputModelLimit must be >= 0, got %d", c.ThroughputModelLimit)
	}
	return nil
}

// Redacted returns a copy safe for printing.
func (c Config) Redacted() Config {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		if len(key) > 4 {
			c.APIKey = "****" + key[len(key)-4:]
		} else {
			c.APIKey = "****"
		}
	}
	return c
}

// LoadDotEnv loads variables from the given .env files (or ./.env) into the
// process environment. A missing file is not an error.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// BindDefaults registers defaults and environment bindings on v so that
// flags > environment > config file > defaults.
func BindDefaults(v *viper.Viper) {
	v.SetDefault("baseURL", DefaultBaseURL)
	v.SetDefault("timeout", int(defaultRequestTimeout.Seconds()))
	v.SetDefault("debug", false)
	v.SetDefault("warmupRequests", defaultWarmupRequests)
	v.SetDefault("rateLimit", 0.0)
	v.SetDefault("metricsAddr", "")
	v.SetDefault("throughputModelLimit", 0)

	_ = v.BindEnv("apiKey", APIKeyEnv)
	_ = v.BindEnv("baseURL", BaseURLEnv)
}

// FromViper materializes the merged configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	return cfg, nil
}
