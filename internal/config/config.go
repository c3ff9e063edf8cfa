package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	AllowedOrigins []string

	// Database
	SQLiteDBPath string

	// Sheet feed sync. A spreadsheet ID switches the sync path from the
	// public CSV export to the authenticated Sheets API.
	SheetURL            string
	GoogleSpreadsheetID string
	SyncInterval        time.Duration
	SyncOnStart         bool

	// Goal defaults applied on first run
	DefaultGoalAmount float64

	// Auth (empty domain disables the authenticated endpoints)
	AuthDomain   string
	AuthAudience string

	// CRM
	CRMToken           string
	CRMLocationID      string
	CRMLastUsedFieldID string

	// Billing
	BillingSecretKey string
	BillingReturnURL string

	// AMQP usage telemetry (empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/pacecal.db"),

		SheetURL:            getEnv("SHEET_URL", ""),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SyncInterval:        getEnvDuration("SYNC_INTERVAL", 15*time.Minute),
		SyncOnStart:         getEnvBool("SYNC_ON_START", true),

		DefaultGoalAmount: getEnvFloat("DEFAULT_GOAL_AMOUNT", 500000),

		AuthDomain:   getEnv("AUTH_DOMAIN", ""),
		AuthAudience: getEnv("AUTH_AUDIENCE", ""),

		CRMToken:           getEnv("CRM_TOKEN", ""),
		CRMLocationID:      getEnv("CRM_LOCATION_ID", ""),
		CRMLastUsedFieldID: getEnv("CRM_LAST_USED_FIELD_ID", ""),

		BillingSecretKey: getEnv("BILLING_SECRET_KEY", ""),
		BillingReturnURL: getEnv("BILLING_RETURN_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pacecal"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "usage_events"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate database path and make sure its directory exists
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate sheet URL if provided
	if c.SheetURL != "" {
		if parsed, err := url.Parse(c.SheetURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid sheet URL '%s': %v", c.SheetURL, err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid sheet URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		}
	}

	// Validate sync interval
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.DefaultGoalAmount < 0 {
		errors = append(errors, fmt.Sprintf("invalid default goal amount %v: must not be negative", c.DefaultGoalAmount))
	}

	// Auth domain and audience come as a pair
	if (c.AuthDomain == "") != (c.AuthAudience == "") {
		errors = append(errors, "AUTH_DOMAIN and AUTH_AUDIENCE must be set together")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AuthEnabled reports whether token verification is configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthDomain != "" && c.AuthAudience != ""
}

// SheetsAPIEnabled reports whether sync should read through the Sheets API
// instead of the public CSV export.
func (c *Config) SheetsAPIEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// AMQPEnabled reports whether usage telemetry has a broker to go to.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
