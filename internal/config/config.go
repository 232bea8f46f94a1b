// Package config loads the service configuration from environment
// variables. Model-specific settings live in llm.LoadConfig; everything
// else is here.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingSecret indicates no confirmation signing secret is configured.
// The service refuses to start without one outside demo mode.
var ErrMissingSecret = errors.New("CONFIRMATION_SECRET is required")

// Config holds the service-level settings.
type Config struct {
	// ConfirmationSecret signs confirmation tokens.
	ConfirmationSecret string

	// TokenExpiry overrides the default confirmation window.
	TokenExpiry time.Duration

	// DemoMode selects the scripted intent extractor and the in-memory
	// demo bank instead of live providers.
	DemoMode      bool
	DemoAccountID string

	// Nessie banking API.
	BankAPIKey  string
	BankAPIBase string

	// Safe fallback targets when extraction names none.
	SafeTransferPayeeID string
	SafeBillID          string

	// Addr is the HTTP listen address for serve mode.
	Addr string

	// DBPath is the SQLite audit trail location; ":memory:" is accepted.
	DBPath string

	// LogCalls enables turn/model call logging to stderr.
	LogCalls bool
}

// DefaultConfig returns a Config with sensible defaults. Demo mode is off
// and no secret is set; Validate will fail until one is provided.
func DefaultConfig() Config {
	return Config{
		TokenExpiry: 10 * time.Minute,
		Addr:        ":8080",
		DBPath:      "spendscribe.db",
	}
}

// LoadConfig reads configuration from environment variables, falling back
// to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CONFIRMATION_SECRET"); v != "" {
		cfg.ConfirmationSecret = v
	}
	if v := os.Getenv("SPENDSCRIBE_TOKEN_EXPIRY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TokenExpiry = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("DEMO_MODE"); v != "" {
		cfg.DemoMode = parseBool(v)
	}
	if v := os.Getenv("DEMO_ACCOUNT_ID"); v != "" {
		cfg.DemoAccountID = v
	}
	if v := os.Getenv("NESSIE_API_KEY"); v != "" {
		cfg.BankAPIKey = v
	}
	if v := os.Getenv("NESSIE_API_BASE"); v != "" {
		cfg.BankAPIBase = v
	}
	if v := os.Getenv("SAFE_TRANSFER_PAYEE_ID"); v != "" {
		cfg.SafeTransferPayeeID = v
	}
	if v := os.Getenv("SAFE_BILL_ID"); v != "" {
		cfg.SafeBillID = v
	}
	if v := os.Getenv("SPENDSCRIBE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SPENDSCRIBE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SPENDSCRIBE_LOG_CALLS"); v != "" {
		cfg.LogCalls = parseBool(v)
	}

	return cfg
}

// Validate checks the settings a running service cannot do without. The
// signing secret is always required: demo mode changes providers, not the
// confirmation protocol.
func (c Config) Validate() error {
	if c.ConfirmationSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// parseBool accepts the usual spellings plus yes/no.
func parseBool(v string) bool {
	switch {
	case v == "yes" || v == "Yes" || v == "YES":
		return true
	case v == "no" || v == "No" || v == "NO":
		return false
	}
	b, _ := strconv.ParseBool(v)
	return b
}
