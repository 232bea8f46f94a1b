package llm

import (
	"os"
	"strconv"
)

// Config holds all configuration for the model subsystem.
type Config struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float64
	TimeoutMs   int
	MaxRetries  int
	LogCalls    bool
}

// DefaultConfig returns a Config with sensible defaults. No API key is set,
// so callers fall back to the scripted provider unless one is configured.
func DefaultConfig() Config {
	return Config{
		Model:       "gemini-2.0-flash",
		Endpoint:    "https://generativelanguage.googleapis.com/v1beta",
		Temperature: 0.1,
		TimeoutMs:   10000,
		MaxRetries:  1,
	}
}

// LoadConfig reads model configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GEMINI_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("GEMINI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 2 {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("GEMINI_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("GEMINI_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}

	return cfg
}
