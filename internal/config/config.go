// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/wcag-check/internal/audit"
	"github.com/jonathan/wcag-check/internal/caption"
	"github.com/jonathan/wcag-check/internal/fetch"
	"github.com/jonathan/wcag-check/internal/remediation"
)

// Environment variables read by FromEnv.
const (
	EnvHuggingFaceToken = "HUGGINGFACE_API_TOKEN"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvDatabaseURL      = "DATABASE_URL"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Server
	Port int `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`

	// Captioning
	CaptionProvider     string `json:"caption_provider,omitempty" validate:"omitempty,oneof=huggingface gemini"`
	CaptionEndpoint     string `json:"caption_endpoint,omitempty" validate:"omitempty,url"`
	CaptionModel        string `json:"caption_model,omitempty"`
	RetryAttempts       int    `json:"retry_attempts,omitempty" validate:"min=0,max=10"`
	RetryInitialDelayMs int    `json:"retry_initial_delay_ms,omitempty" validate:"min=0"`

	// Timeouts
	FetchTimeoutMs   int `json:"fetch_timeout_ms,omitempty" validate:"min=0"`
	CaptionTimeoutMs int `json:"caption_timeout_ms,omitempty" validate:"min=0"`
	AuditTimeoutMs   int `json:"audit_timeout_ms,omitempty" validate:"min=0"`

	// Remediation
	Concurrency   int    `json:"concurrency,omitempty" validate:"min=0,max=32"`
	FailureMarker string `json:"failure_marker,omitempty"`

	// Auditing
	AxeScriptURL  string `json:"axe_script_url,omitempty" validate:"omitempty,url"`
	AxeScriptPath string `json:"axe_script_path,omitempty"`

	// Credentials are never read from the config file
	HuggingFaceToken string `json:"-"`
	GeminiAPIKey     string `json:"-"`

	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for the caption cache
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                8080,
		CaptionProvider:     string(caption.ProviderHuggingFace),
		CaptionEndpoint:     caption.DefaultHuggingFaceEndpoint,
		CaptionModel:        caption.DefaultGeminiModel,
		RetryAttempts:       caption.DefaultMaxRetries,
		RetryInitialDelayMs: int(caption.DefaultInitialDelay / time.Millisecond),
		FetchTimeoutMs:      int(fetch.DefaultTimeout / time.Millisecond),
		CaptionTimeoutMs:    int(caption.DefaultTimeout / time.Millisecond),
		AuditTimeoutMs:      int(audit.DefaultTimeout / time.Millisecond),
		Concurrency:         1,
		FailureMarker:       remediation.DefaultFailureMarker,
		AxeScriptURL:        audit.DefaultAxeScriptURL,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns the defaults overridden by environment variables.
// Credentials are only ever read from the environment. A missing credential
// is not an error here; it surfaces when the first caption is requested.
func FromEnv() Config {
	cfg := Defaults()
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.CaptionProvider = getEnvString("CAPTION_PROVIDER", cfg.CaptionProvider)
	cfg.CaptionEndpoint = getEnvString("CAPTION_ENDPOINT", cfg.CaptionEndpoint)
	cfg.CaptionModel = getEnvString("CAPTION_MODEL", cfg.CaptionModel)
	cfg.RetryAttempts = getEnvInt("CAPTION_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryInitialDelayMs = getEnvInt("CAPTION_RETRY_INITIAL_DELAY_MS", cfg.RetryInitialDelayMs)
	cfg.Concurrency = getEnvInt("REMEDIATION_CONCURRENCY", cfg.Concurrency)
	cfg.FailureMarker = getEnvString("FAILURE_MARKER", cfg.FailureMarker)
	cfg.AxeScriptURL = getEnvString("AXE_SCRIPT_URL", cfg.AxeScriptURL)
	cfg.AxeScriptPath = getEnvString("AXE_SCRIPT_PATH", cfg.AxeScriptPath)
	cfg.DatabaseURL = getEnvString(EnvDatabaseURL, cfg.DatabaseURL)
	cfg.Verbose = getEnvBool("VERBOSE", cfg.Verbose)
	cfg.HuggingFaceToken = strings.TrimSpace(os.Getenv(EnvHuggingFaceToken))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv(EnvGeminiAPIKey))
	return cfg
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for credentials since those are only needed
// once a caption is requested.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("'%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.CaptionProvider == "" {
		result.CaptionProvider = defaults.CaptionProvider
	}
	if result.CaptionEndpoint == "" {
		result.CaptionEndpoint = defaults.CaptionEndpoint
	}
	if result.CaptionModel == "" {
		result.CaptionModel = defaults.CaptionModel
	}
	if result.FailureMarker == "" {
		result.FailureMarker = defaults.FailureMarker
	}
	if result.AxeScriptURL == "" {
		result.AxeScriptURL = defaults.AxeScriptURL
	}
	if result.AxeScriptPath == "" {
		result.AxeScriptPath = defaults.AxeScriptPath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.HuggingFaceToken == "" {
		result.HuggingFaceToken = defaults.HuggingFaceToken
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = defaults.RetryAttempts
	}
	if result.RetryInitialDelayMs == 0 {
		result.RetryInitialDelayMs = defaults.RetryInitialDelayMs
	}
	if result.FetchTimeoutMs == 0 {
		result.FetchTimeoutMs = defaults.FetchTimeoutMs
	}
	if result.CaptionTimeoutMs == 0 {
		result.CaptionTimeoutMs = defaults.CaptionTimeoutMs
	}
	if result.AuditTimeoutMs == 0 {
		result.AuditTimeoutMs = defaults.AuditTimeoutMs
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}

	// Bool fields: either source may switch verbose output on
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// CaptionConfig converts the configuration for the caption package.
func (c *Config) CaptionConfig() *caption.Config {
	cfg := caption.DefaultConfig()
	if c.CaptionProvider != "" {
		cfg.Provider = caption.Provider(c.CaptionProvider)
	}
	if c.CaptionEndpoint != "" {
		cfg.Endpoint = c.CaptionEndpoint
	}
	if c.CaptionModel != "" {
		cfg.Model = c.CaptionModel
	}
	cfg.HuggingFaceToken = c.HuggingFaceToken
	cfg.GeminiAPIKey = c.GeminiAPIKey
	if c.CaptionTimeoutMs > 0 {
		cfg.Timeout = millis(c.CaptionTimeoutMs)
	}
	cfg.Retry = caption.RetryPolicy{
		MaxRetries:   c.RetryAttempts,
		InitialDelay: millis(c.RetryInitialDelayMs),
	}
	if cfg.Retry.InitialDelay <= 0 {
		cfg.Retry.InitialDelay = caption.DefaultInitialDelay
	}
	cfg.Verbose = c.Verbose
	return cfg
}

// FetchOptions converts the configuration for outbound image and script fetches.
func (c *Config) FetchOptions() *fetch.Options {
	opts := fetch.DefaultOptions()
	if c.FetchTimeoutMs > 0 {
		opts.Timeout = millis(c.FetchTimeoutMs)
	}
	return opts
}

// AuditOptions converts the configuration for the browser audit.
func (c *Config) AuditOptions() *audit.Options {
	opts := audit.DefaultOptions()
	if c.AuditTimeoutMs > 0 {
		opts.Timeout = millis(c.AuditTimeoutMs)
	}
	if c.AxeScriptURL != "" {
		opts.AxeScriptURL = c.AxeScriptURL
	}
	opts.AxeScriptPath = c.AxeScriptPath
	opts.FetchOptions = c.FetchOptions()
	opts.Verbose = c.Verbose
	return opts
}

// RemediationOptions converts the configuration into remediator options.
func (c *Config) RemediationOptions() []remediation.Option {
	opts := []remediation.Option{
		remediation.WithFetchOptions(c.FetchOptions()),
		remediation.WithVerbose(c.Verbose),
	}
	if c.Concurrency > 0 {
		opts = append(opts, remediation.WithConcurrency(c.Concurrency))
	}
	if c.FailureMarker != "" {
		opts = append(opts, remediation.WithFailureMarker(c.FailureMarker))
	}
	return opts
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
