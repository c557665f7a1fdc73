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

// Data sources accepted by DATA_SOURCE.
var validDataSources = []string{"local", "s3", "sqlite", "postgres", "sheets", "memory"}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Data source selection
	DataSource string

	// Local files
	LocalDataDir string
	SubramosFile string

	// S3
	S3Bucket   string
	S3Prefix   string
	S3Endpoint string
	AWSRegion  string

	// Database
	SQLiteDBPath  string
	PostgresURL   string
	PostgresTable string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// HTTP surface
	CORSOrigins        []string
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
	AdminToken         string

	// Companion API
	DashboardAPIURL string
	APITimeout      time.Duration

	// Import worker
	ImportFrom     string
	ImportInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8050"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataSource: getEnv("DATA_SOURCE", "local"),

		LocalDataDir: getEnv("LOCAL_DATA_DIR", "./data"),
		SubramosFile: getEnv("SUBRAMOS_FILE", "subramos_historico"),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		S3Prefix:   getEnv("S3_PREFIX", "seguros"),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),
		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/seguros.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		PostgresTable: getEnv("POSTGRES_TABLE", "subramos_historico"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "subramos_historico"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "seguros"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_reload"),

		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:8050", "http://127.0.0.1:8050"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:          getEnvInt("CACHE_SIZE", 256),
		AdminToken:         getEnv("ADMIN_TOKEN", ""),

		DashboardAPIURL: getEnv("DASHBOARD_API_URL", ""),
		APITimeout:      getEnvDuration("API_TIMEOUT", 10*time.Second),

		ImportFrom:     getEnv("IMPORT_FROM", "local"),
		ImportInterval: getEnvDuration("IMPORT_INTERVAL", time.Hour),
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

	// Validate data source
	if !isValidSource(c.DataSource) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, validDataSources))
	}
	errors = append(errors, c.validateSource(c.DataSource)...)

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

	// Validate companion API
	if c.DashboardAPIURL != "" {
		if parsedURL, err := url.Parse(c.DashboardAPIURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid dashboard API URL '%s': must be an http(s) URL", c.DashboardAPIURL))
		}
	}
	if c.APITimeout <= 0 || c.APITimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be between 1ns and 2m", c.APITimeout))
	}

	// Validate cache and rate limiting
	if c.CacheSize < 1 || c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 1 and 100000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	// Validate import worker
	if c.ImportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must be at least 1 second", c.ImportInterval))
	} else if c.ImportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid import interval %v: must be at most 24 hours", c.ImportInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateImport checks the settings the import worker needs on top of
// Validate: a readable import source and a writable SQLite store.
func (c *Config) ValidateImport() error {
	var errors []string
	if !isValidSource(c.ImportFrom) || c.ImportFrom == "sqlite" {
		errors = append(errors, fmt.Sprintf("invalid import source '%s': must be a source other than sqlite", c.ImportFrom))
	} else {
		errors = append(errors, c.validateSource(c.ImportFrom)...)
	}
	errors = append(errors, c.validateSource("sqlite")...)
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSource(name string) []string {
	var errors []string
	switch name {
	case "local":
		if c.LocalDataDir == "" {
			errors = append(errors, "local data directory cannot be empty when using local source")
		}
		if c.SubramosFile == "" {
			errors = append(errors, "subramos file name cannot be empty when using local source")
		}
	case "s3":
		if c.S3Bucket == "" {
			errors = append(errors, "S3 bucket is required when using s3 source")
		}
		if c.SubramosFile == "" {
			errors = append(errors, "subramos file name cannot be empty when using s3 source")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite source")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresURL == "" {
			errors = append(errors, "Postgres URL is required when using postgres source")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets source")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	return errors
}

func isValidSource(name string) bool {
	for _, s := range validDataSources {
		if name == s {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
