package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aires-app/gemini-relay/internal/relay"
)

// ErrMissingAPIKey is returned by Validate when GEMINI_API_KEY is not set.
// The relay cannot serve a single request without it.
var ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

// Config holds all configuration for the relay. It is built once at
// startup and never re-read per request.
type Config struct {
	Port      int
	Version   string
	LogLevel  string
	Gemini    GeminiConfig
	Retry     RetryConfig
	Sanitizer SanitizerConfig
	CORS      CORSConfig
	Telemetry TelemetryConfig
}

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type SanitizerConfig struct {
	// Repair enables a jsonrepair pass when strict parsing fails.
	Repair bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; values
// already set in the process environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     envInt("PORT", 3010),
		Version:  envStr("RELAY_VERSION", "0.1.0"),
		LogLevel: envStr("LOG_LEVEL", "info"),
		Gemini: GeminiConfig{
			APIKey:     envStr("GEMINI_API_KEY", ""),
			BaseURL:    envStr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIVersion: envStr("GEMINI_API_VERSION", "v1"),
			Model:      envStr("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:    envDuration("GEMINI_TIMEOUT", 0),
		},
		Retry: RetryConfig{
			Attempts: envInt("RELAY_RETRY_ATTEMPTS", relay.DefaultAttempts),
			Delay:    envDuration("RELAY_RETRY_DELAY", relay.DefaultDelay),
		},
		Sanitizer: SanitizerConfig{
			Repair: envBool("RELAY_JSON_REPAIR", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "aires-gemini-relay"),
		},
	}
}

// Validate reports configuration the relay cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("RELAY_RETRY_ATTEMPTS must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("RELAY_RETRY_DELAY must not be negative, got %s", c.Retry.Delay)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("2s", "500ms") or a bare
// integer, read as milliseconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
