// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile     = "connect.yaml"
	DefaultUnipileBaseURL = "https://api25.unipile.com:15594"
	DefaultLocalURL       = "http://localhost:3000"
	DefaultSQLiteDSN      = "file::memory:?cache=shared"

	CacheMemory = "memory"
	CacheSQLite = "sqlite"

	// APIPrefix is where the REST endpoints are mounted.
	APIPrefix = "/api/unipile"
)

// Config holds the application configuration.
type Config struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`

	UnipileBaseURL string        `yaml:"unipile_base_url" validate:"required,url"`
	UnipileAPIKey  string        `yaml:"unipile_api_key"`
	UnipileTimeout time.Duration `yaml:"unipile_timeout"`

	// FrontendURL is where the browser lands after hosted auth; BackendURL
	// is this service's public address, used for the webhook.
	FrontendURL string `yaml:"frontend_url" validate:"required,url"`
	BackendURL  string `yaml:"backend_url" validate:"required,url"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`

	CacheBackend string `yaml:"cache_backend" validate:"oneof=memory sqlite"`
	CacheDSN     string `yaml:"cache_dsn"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"min=1,dive,required"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               3000,
		UnipileBaseURL:     DefaultUnipileBaseURL,
		UnipileTimeout:     30 * time.Second,
		FrontendURL:        DefaultLocalURL,
		BackendURL:         DefaultLocalURL,
		LogLevel:           "info",
		LogFormat:          "json",
		CacheBackend:       CacheMemory,
		CacheDSN:           DefaultSQLiteDSN,
		CORSAllowedOrigins: []string{"*"},
	}
}

// Load reads .env (if present), then the YAML file named by CONNECT_CONFIG
// (or connect.yaml when it exists), then environment overrides.
func Load() (*Config, error) {
	// A missing .env is fine; real environment variables may be set.
	_ = godotenv.Load()

	cfg := Default()

	path, explicit := os.LookupEnv("CONNECT_CONFIG")
	if !explicit || strings.TrimSpace(path) == "" {
		path, explicit = DefaultConfigFile, false
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Host = getEnv("HOST", c.Host)
	c.UnipileBaseURL = getEnv("UNIPILE_BASE_URL", c.UnipileBaseURL)
	c.UnipileAPIKey = getEnv("UNIPILE_API_KEY", c.UnipileAPIKey)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.CacheBackend = getEnv("CACHE_BACKEND", c.CacheBackend)
	c.CacheDSN = getEnv("CACHE_DSN", c.CacheDSN)

	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid PORT value: %w", err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("UNIPILE_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid UNIPILE_TIMEOUT value: %w", err)
		}
		c.UnipileTimeout = timeout
	}
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		c.CORSAllowedOrigins = splitList(v)
	}
	return nil
}

func (c *Config) normalize() {
	c.UnipileBaseURL = strings.TrimRight(strings.TrimSpace(c.UnipileBaseURL), "/")
	c.UnipileAPIKey = strings.TrimSpace(c.UnipileAPIKey)
	c.FrontendURL = strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
}

// Validate checks the struct tags and the constraints tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.UnipileTimeout < 0 {
		return fmt.Errorf("invalid configuration: UNIPILE_TIMEOUT must not be negative")
	}
	return nil
}

// Warnings lists settings that still work but probably need attention.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.UnipileAPIKey == "" {
		warnings = append(warnings, "UNIPILE_API_KEY is not set; create a .env file with UNIPILE_API_KEY=<your key>")
	}
	if c.CacheBackend == CacheMemory && c.CacheDSN != DefaultSQLiteDSN {
		warnings = append(warnings, "CACHE_DSN is ignored unless CACHE_BACKEND=sqlite")
	}
	return warnings
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// WebhookURL is where Unipile notifies new connections.
func (c *Config) WebhookURL() string {
	return c.BackendURL + APIPrefix + "/webhook"
}

// SuccessURL is the browser landing page after a successful hosted auth.
func (c *Config) SuccessURL(provider string) string {
	return c.FrontendURL + "/auth/success?provider=" + url.QueryEscape(provider)
}

// FailureURL is the browser landing page after a failed hosted auth.
func (c *Config) FailureURL(provider string) string {
	return c.FrontendURL + "/auth/failure?provider=" + url.QueryEscape(provider)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
