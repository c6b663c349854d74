package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for curvewatch
type Config struct {
	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	// Redis configuration (cross-process job locks)
	RedisURL string

	// Chain-data RPC configuration
	RPCEndpoints  []string
	RPCMaxRetries int
	RPCBaseDelay  time.Duration
	RPCTimeout    time.Duration

	// Market data configuration
	PairsAPIURL      string
	TrendingAPIURL   string
	CurveAPIURL      string
	SnapshotTTL      time.Duration
	StaleSnapshotMax time.Duration
	PairChunkDelay   time.Duration

	// Whale detection configuration
	WhaleMinUsd    float64
	TokenScanDelay time.Duration
	TopTokenCount  int

	// Alerting configuration
	TelegramBotToken string
	WhaleAlertChatID string

	// Cron trigger configuration
	CronSecret string
	HTTPPort   string

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBUser:           getEnv("DB_USER", ""),
		DBPassword:       getEnv("DB_PASSWORD", ""),
		DBName:           getEnv("DB_NAME", ""),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBSSLMode:        getEnv("DB_SSL_MODE", "disable"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379"),
		PairsAPIURL:      getEnv("PAIRS_API_URL", "https://api.dexscreener.com/latest/dex"),
		TrendingAPIURL:   getEnv("TRENDING_API_URL", "https://api.dexscreener.com/token-boosts/top/v1"),
		CurveAPIURL:      getEnv("CURVE_API_URL", "https://frontend-api.pump.fun"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WhaleAlertChatID: getEnv("WHALE_ALERT_CHAT_ID", ""),
		CronSecret:       getEnv("CRON_SECRET", ""),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsPort:      getEnv("METRICS_PORT", "9100"),
	}

	// Parse RPC endpoints
	rpcEndpointsStr := getEnv("RPC_ENDPOINTS", "")
	if rpcEndpointsStr == "" {
		return cfg, fmt.Errorf("RPC_ENDPOINTS environment variable is required")
	}
	cfg.RPCEndpoints = strings.Split(rpcEndpointsStr, ",")
	for i, endpoint := range cfg.RPCEndpoints {
		cfg.RPCEndpoints[i] = strings.TrimSpace(endpoint)
	}

	var err error
	cfg.RPCMaxRetries, err = parseIntEnv("RPC_MAX_RETRIES", 3)
	if err != nil {
		return cfg, fmt.Errorf("invalid RPC_MAX_RETRIES: %w", err)
	}

	cfg.RPCBaseDelay, err = parseDurationEnv("RPC_BASE_DELAY", 500*time.Millisecond)
	if err != nil {
		return cfg, fmt.Errorf("invalid RPC_BASE_DELAY: %w", err)
	}

	cfg.RPCTimeout, err = parseDurationEnv("RPC_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid RPC_TIMEOUT: %w", err)
	}

	cfg.SnapshotTTL, err = parseDurationEnv("SNAPSHOT_TTL", 30*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid SNAPSHOT_TTL: %w", err)
	}

	cfg.StaleSnapshotMax, err = parseDurationEnv("STALE_SNAPSHOT_MAX", 10*time.Minute)
	if err != nil {
		return cfg, fmt.Errorf("invalid STALE_SNAPSHOT_MAX: %w", err)
	}

	cfg.PairChunkDelay, err = parseDurationEnv("PAIR_CHUNK_DELAY", 250*time.Millisecond)
	if err != nil {
		return cfg, fmt.Errorf("invalid PAIR_CHUNK_DELAY: %w", err)
	}

	cfg.WhaleMinUsd, err = parseFloatEnv("WHALE_MIN_USD", 5000)
	if err != nil {
		return cfg, fmt.Errorf("invalid WHALE_MIN_USD: %w", err)
	}

	cfg.TokenScanDelay, err = parseDurationEnv("TOKEN_SCAN_DELAY", 1*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid TOKEN_SCAN_DELAY: %w", err)
	}

	cfg.TopTokenCount, err = parseIntEnv("TOP_TOKEN_COUNT", 10)
	if err != nil {
		return cfg, fmt.Errorf("invalid TOP_TOKEN_COUNT: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}

	if c.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}

	if c.RPCMaxRetries < 1 {
		return fmt.Errorf("RPC_MAX_RETRIES must be at least 1")
	}

	if c.WhaleMinUsd <= 0 {
		return fmt.Errorf("WHALE_MIN_USD must be positive")
	}

	if c.TopTokenCount < 1 {
		return fmt.Errorf("TOP_TOKEN_COUNT must be at least 1")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

// parseFloatEnv parses a float environment variable with a default value
func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}

// parseDurationEnv parses a duration environment variable with a default value
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}
