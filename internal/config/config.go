package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort        = "5000"
	defaultUpstreamURL = "https://api.openai.com/v1/chat/completions"
	defaultTimeout     = 30 * time.Second
)

type Config struct {
	Port            string
	Env             string
	APIKey          string
	UpstreamURL     string
	UpstreamTimeout time.Duration
	AllowedOrigins  []string // empty = any origin
	StaticDir       string   // optional SPA build directory
	RelayURL        string   // optional remote relay; empty = in-process
	PersonaFile     string
}

// IsProduction reports whether the deployment restricts cross-origin callers.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if present) and the process environment. A missing
// OPENAI_API_KEY is an error: the relay never runs without a credential.
func Load() (*Config, error) {
	godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an environment lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	apiKey := strings.TrimSpace(getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	timeout, err := parseTimeout(getenv("UPSTREAM_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            orDefault(getenv("PORT"), defaultPort),
		Env:             orDefault(getenv("APP_ENV"), "development"),
		APIKey:          apiKey,
		UpstreamURL:     orDefault(getenv("OPENAI_API_URL"), defaultUpstreamURL),
		UpstreamTimeout: timeout,
		StaticDir:       getenv("STATIC_DIR"),
		RelayURL:        getenv("RELAY_URL"),
		PersonaFile:     getenv("PERSONA_FILE"),
	}

	cfg.AllowedOrigins = splitList(getenv("ALLOWED_ORIGINS"))
	for _, key := range []string{"FRONTEND_URL", "DOMAIN_URL"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, v)
		}
	}
	if cfg.IsProduction() && len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS (or FRONTEND_URL/DOMAIN_URL) required when APP_ENV=production")
	}

	return cfg, nil
}

// parseTimeout accepts a Go duration ("45s") or a whole number of seconds ("45").
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTimeout, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", d)
	}
	return d, nil
}

func orDefault(val, def string) string {
	if strings.TrimSpace(val) == "" {
		return def
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
