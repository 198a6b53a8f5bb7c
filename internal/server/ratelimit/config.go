package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string // exact path, or a prefix ending in "/"
	Method string
	Limit  int // requests per Window
	Window time.Duration
	Burst  int // bucket capacity; Limit when zero
	// Group shares one bucket between all endpoints with the same group name.
	Group string
}

// AuditGroup is the shared bucket for endpoints that start a browser audit or caption inference.
const AuditGroup = "audit"

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         getEnvDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       parseIPList(getEnvString("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(getEnvString("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: AuditEndpointConfigs(
			getEnvInt("RATE_LIMIT_AUDIT_LIMIT", 30),
			getEnvInt("RATE_LIMIT_AUDIT_BURST", 5),
		),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return AuditEndpointConfigs(30, 5)
}

// AuditEndpointConfigs limits the audit and remediation endpoints to limit
// requests per hour per client, shared across all of them.
// /summary is pure computation and falls back to the default limit;
// /health is unlimited (special case in matcher).
func AuditEndpointConfigs(limit, burst int) []EndpointConfig {
	endpoints := []struct{ path, method string }{
		{"/wcag-check", "GET"},
		{"/wcag-check", "POST"},
		{"/alt-texts", "POST"},
		{"/alt-texts/stream", "POST"},
	}
	configs := make([]EndpointConfig, 0, len(endpoints))
	for _, e := range endpoints {
		configs = append(configs, EndpointConfig{
			Path:   e.path,
			Method: e.method,
			Limit:  limit,
			Window: time.Hour,
			Burst:  burst,
			Group:  AuditGroup,
		})
	}
	return configs
}

// envOr parses the named variable, falling back to def when it is unset or malformed.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvString(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvInt(key string, def int) int { return envOr(key, def, strconv.Atoi) }

func getEnvBool(key string, def bool) bool { return envOr(key, def, strconv.ParseBool) }

func getEnvDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration)
}

// parseIPList turns "a, b,,c" into a set; blank entries are dropped.
func parseIPList(list string) map[string]bool {
	set := make(map[string]bool)
	for ip := range strings.SplitSeq(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
