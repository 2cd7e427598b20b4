package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional; ranking persistence is skipped when URL is empty)
	Database DatabaseConfig

	// Redis (daily cache backend)
	Redis RedisConfig

	// External data sources
	Providers ProviderConfig

	// Notification
	DingTalk DingTalkConfig

	// Batch pass
	Scan ScanConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether ranking persistence is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds tick/universe data source configuration.
type ProviderConfig struct {
	TencentBaseURL   string
	EastMoneyBaseURL string
	HotRankBaseURL   string
	HotRankPageURL   string // HTML fallback for the hot-rank board
	UserAgent        string

	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	RequestsPerSec float64 // politeness limit shared by all provider calls
}

// DingTalkConfig holds the notification webhook configuration.
type DingTalkConfig struct {
	WebhookURL string
	Secret     string
	TopN       int
	Enabled    bool
}

// ScanConfig holds batch pass configuration.
type ScanConfig struct {
	Workers      int           // worker pool size, capped
	TaskTimeout  time.Duration // per-instrument fetch+analysis budget
	ModelVersion string        // scoring preset id
	Schedule     string        // cron expression for the scheduled pass

	// Universe filter bounds
	MinPrice     float64
	MaxPrice     float64
	MinChangePct float64
	MaxChangePct float64
}

// Load reads configuration from environment variables. This is the only
// function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8087"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		Providers: ProviderConfig{
			TencentBaseURL:   getEnv("TENCENT_BASE_URL", "https://stock.gtimg.cn"),
			EastMoneyBaseURL: getEnv("EASTMONEY_BASE_URL", "https://push2.eastmoney.com"),
			HotRankBaseURL:   getEnv("HOTRANK_BASE_URL", "https://emappdata.eastmoney.com"),
			HotRankPageURL:   getEnv("HOTRANK_PAGE_URL", "https://guba.eastmoney.com/rank/"),
			UserAgent:        getEnv("PROVIDER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),
			RequestTimeout:   getEnvAsDuration("PROVIDER_TIMEOUT", "10s"),
			MaxRetries:       getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
			RetryDelay:       getEnvAsDuration("PROVIDER_RETRY_DELAY", "1s"),
			RequestsPerSec:   getEnvAsFloat("PROVIDER_RATE_LIMIT", 20),
		},

		DingTalk: DingTalkConfig{
			WebhookURL: getEnv("DINGTALK_WEBHOOK_URL", ""),
			Secret:     getEnv("DINGTALK_SECRET", ""),
			TopN:       getEnvAsInt("DINGTALK_TOP_N", 30),
			Enabled:    getEnvAsBool("DINGTALK_ENABLED", true),
		},

		Scan: ScanConfig{
			Workers:      getEnvAsInt("SCAN_WORKERS", defaultWorkers()),
			TaskTimeout:  getEnvAsDuration("SCAN_TASK_TIMEOUT", "15s"),
			ModelVersion: getEnv("SCAN_MODEL_VERSION", "v8.4-intraday"),
			Schedule:     getEnv("SCAN_SCHEDULE", "0 50 14 * * MON-FRI"),
			MinPrice:     getEnvAsFloat("SCAN_MIN_PRICE", 5),
			MaxPrice:     getEnvAsFloat("SCAN_MAX_PRICE", 30),
			MinChangePct: getEnvAsFloat("SCAN_MIN_CHANGE_PCT", -3),
			MaxChangePct: getEnvAsFloat("SCAN_MAX_CHANGE_PCT", 9),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.Workers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1")
	}

	if c.Scan.TaskTimeout <= 0 {
		return fmt.Errorf("SCAN_TASK_TIMEOUT must be positive")
	}

	if c.DingTalk.Enabled && c.DingTalk.WebhookURL != "" && c.DingTalk.Secret == "" {
		return fmt.Errorf("DINGTALK_SECRET is required when a webhook URL is set")
	}

	return nil
}

// defaultWorkers sizes the pool as a small multiple of hardware threads,
// capped at 16.
func defaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 16 {
		n = 16
	}
	return n
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		fallback, _ := time.ParseDuration(defaultValue)
		return fallback
	}

	return value
}
