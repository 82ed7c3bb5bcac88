package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port            string
	RequestTimeout  time.Duration
	RateLimitRPM    int
	TrustedProxies  []string
	MetricsPort     string // worker only
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DataBackend  string
	SQLiteDBPath string

	// AMQP; empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Payments; empty API key disables checkout
	AsaasAPIURL    string
	AsaasAPIKey    string
	PaymentTimeout time.Duration
	PlansFile      string

	// Dashboard cache and limit editing
	CacheSize     int
	CacheTTL      time.Duration
	LimitDebounce time.Duration

	// Worker
	IntegritySchedule string
	Timezone          string

	// Google Sheets export
	GoogleSpreadsheetID string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPM:    getEnvInt("RATE_LIMIT_RPM", 120),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),
		MetricsPort:     getEnv("METRICS_PORT", "9091"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/saldo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "saldo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "saldo_events"),

		AsaasAPIURL:    getEnv("ASAAS_API_URL", "https://sandbox.asaas.com/api/v3/"),
		AsaasAPIKey:    getEnv("ASAAS_API_KEY", ""),
		PaymentTimeout: getEnvDuration("PAYMENT_TIMEOUT", 15*time.Second),
		PlansFile:      getEnv("PLANS_FILE", ""),

		CacheSize:     getEnvInt("CACHE_SIZE", 512),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		LimitDebounce: getEnvDuration("LIMIT_DEBOUNCE", 800*time.Millisecond),

		IntegritySchedule: getEnv("INTEGRITY_SCHEDULE", "0 15 3 * * *"),
		Timezone:          getEnv("TZ", "UTC"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
	}
}

// AMQPEnabled reports whether events go to the broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// PaymentsEnabled reports whether checkout is wired to the gateway.
func (c *Config) PaymentsEnabled() bool {
	return c.AsaasAPIKey != ""
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	for _, pp := range [][2]string{{"port", c.Port}, {"metrics port", c.MetricsPort}} {
		name, port := pp[0], pp[1]
		if p, err := strconv.Atoi(port); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a number", name, port))
		} else if p < 1 || p > 65535 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, p))
		}
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
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
	}

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

	if c.AsaasAPIKey != "" {
		if parsedURL, err := url.Parse(c.AsaasAPIURL); err != nil || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Asaas API URL '%s'", c.AsaasAPIURL))
		}
		if c.PaymentTimeout <= 0 || c.PaymentTimeout > time.Minute {
			errors = append(errors, fmt.Sprintf("invalid payment timeout %v: must be between 0 and 1 minute", c.PaymentTimeout))
		}
	}
	if c.PlansFile != "" {
		if _, err := os.Stat(c.PlansFile); err != nil {
			errors = append(errors, fmt.Sprintf("plans file does not exist: %s", c.PlansFile))
		}
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}
	if c.RequestTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 1 second", c.RequestTimeout))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.LimitDebounce < 0 || c.LimitDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid limit debounce %v: must be between 0 and 1 minute", c.LimitDebounce))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy CIDR '%s'", cidr))
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
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

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
