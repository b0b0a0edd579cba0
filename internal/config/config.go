package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/joho/godotenv"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Sync      SyncConfig
	Reindex   ReindexConfig
	Primary   PrimaryConfig
	Secondary SecondaryConfig
	Schedule  ScheduleConfig
	Assets    AssetsConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port   string
	Host   string
	Addr   string // Combined host:port for convenience
	APIKey string // Guards mutating routes; empty disables the check
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// SyncConfig holds the refresh policy constants.
type SyncConfig struct {
	MaxAttempts      int
	CooldownDuration time.Duration
	Freshness        time.Duration
	BatchConcurrency int
	InterBatchDelay  time.Duration
	DerivedCacheTTL  time.Duration
}

// ReindexConfig holds the default event window.
type ReindexConfig struct {
	DaysBefore int
	DaysAfter  int
}

// PrimaryConfig configures the bulk data repository.
type PrimaryConfig struct {
	BaseURL   string
	Owner     string
	Repo      string
	Branch    string
	Token     string
	Timeout   time.Duration
	RPS       float64
	WriteBack bool
}

// SecondaryConfig configures the quote API.
type SecondaryConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RPS          float64
	HistoryYears int
}

// ScheduleConfig holds cron expressions; an empty expression disables the job.
type ScheduleConfig struct {
	Refresh  string
	Eviction string
}

// AssetsConfig points at the asset universe file.
type AssetsConfig struct {
	File string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:   getEnv("SERVER_PORT", "5001"),
			Host:   getEnv("SERVER_HOST", "localhost"),
			APIKey: os.Getenv("INTERNAL_API_KEY"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/market_dashboard.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Sync: SyncConfig{
			MaxAttempts:      getEnvInt("SYNC_MAX_ATTEMPTS", 3),
			CooldownDuration: getEnvDuration("SYNC_COOLDOWN", 5*time.Minute),
			Freshness:        getEnvDuration("SYNC_FRESHNESS", 24*time.Hour),
			BatchConcurrency: getEnvInt("SYNC_BATCH_CONCURRENCY", 2),
			InterBatchDelay:  getEnvDuration("SYNC_BATCH_DELAY", 2*time.Second),
			DerivedCacheTTL:  getEnvDuration("DERIVED_CACHE_TTL", 24*time.Hour),
		},
		Reindex: ReindexConfig{
			DaysBefore: getEnvInt("REINDEX_DAYS_BEFORE", 30),
			DaysAfter:  getEnvInt("REINDEX_DAYS_AFTER", 60),
		},
		Primary: PrimaryConfig{
			BaseURL:   getEnv("PRIMARY_REPO_API", "https://api.github.com"),
			Owner:     getEnv("PRIMARY_REPO_OWNER", "org"),
			Repo:      getEnv("PRIMARY_REPO_NAME", "market-data"),
			Branch:    getEnv("PRIMARY_REPO_BRANCH", "main"),
			Timeout:   getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
			RPS:       getEnvFloat("PRIMARY_RPS", 5),
			WriteBack: getEnvBool("PRIMARY_WRITEBACK", false),
		},
		Secondary: SecondaryConfig{
			BaseURL:      getEnv("SECONDARY_API", "https://query1.finance.yahoo.com"),
			Timeout:      getEnvDuration("FETCH_TIMEOUT", 20*time.Second),
			RPS:          getEnvFloat("SECONDARY_RPS", 1),
			HistoryYears: getEnvInt("SECONDARY_HISTORY_YEARS", 5),
		},
		Schedule: ScheduleConfig{
			Refresh:  getEnv("REFRESH_SCHEDULE", "0 */6 * * *"),
			Eviction: getEnv("EVICTION_SCHEDULE", "@hourly"),
		},
		Assets: AssetsConfig{
			File: getEnv("ASSETS_FILE", "./assets.yaml"),
		},
	}

	token, err := resolveToken(os.Getenv("PRIMARY_REPO_TOKEN"), os.Getenv("PRIMARY_REPO_TOKEN_ENCRYPTED"), os.Getenv("FERNET_KEY"))
	if err != nil {
		return nil, err
	}
	config.Primary.Token = token

	if config.Sync.MaxAttempts < 1 {
		return nil, fmt.Errorf("SYNC_MAX_ATTEMPTS must be at least 1, got %d", config.Sync.MaxAttempts)
	}
	if config.Sync.BatchConcurrency < 1 {
		return nil, fmt.Errorf("SYNC_BATCH_CONCURRENCY must be at least 1, got %d", config.Sync.BatchConcurrency)
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// resolveToken returns the plain repository token, decrypting the fernet token
// when only the encrypted form is configured.
func resolveToken(plain, encrypted, key string) (string, error) {
	if plain != "" || encrypted == "" {
		return plain, nil
	}
	if key == "" {
		return "", apperrors.ErrMissingFernetKey
	}
	keys, err := fernet.DecodeKeys(key)
	if err != nil {
		return "", fmt.Errorf("failed to decode FERNET_KEY: %w", err)
	}
	msg := fernet.VerifyAndDecrypt([]byte(encrypted), 0, keys)
	if msg == nil {
		return "", apperrors.ErrInvalidToken
	}
	return string(msg), nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go duration strings ("5m") or plain milliseconds ("300000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
