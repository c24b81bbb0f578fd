package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourusername/facturas/logger"
	"github.com/yourusername/facturas/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Port             string
	GinMode          string
	DatabaseURL      string
	DatabasePath     string
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	LockBackend   string
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QRBaseURL         string
	DefaultSoftwareID string
	FinalizeRetries   int

	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		GinMode:           getEnvOrDefault("GIN_MODE", "release"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabasePath:      getEnvOrDefault("DATABASE_PATH", "invoices.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:  os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:    getDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getDurationOrDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		LockBackend:       strings.ToLower(getEnvOrDefault("LOCK_BACKEND", LockBackendMemory)),
		LockTTL:           getDurationOrDefault("LOCK_TTL", 30*time.Second),
		RedisAddr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getIntOrDefault("REDIS_DB", 0),
		QRBaseURL:         getEnvOrDefault("VERIFACTU_QR_BASE_URL", "https://sede.agenciatributaria.gob.es/verifactu"),
		DefaultSoftwareID: getEnvOrDefault("VERIFACTU_SOFTWARE_ID", "SYS-FACT-001"),
		FinalizeRetries:   getIntOrDefault("FINALIZE_RETRIES", 3),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "console"),
		LogTimeFormat:     getEnvOrDefault("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:         getEnvOrDefault("LOG_OUTPUT", "stdout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LockBackend {
	case LockBackendMemory, LockBackendRedis:
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockBackendMemory, LockBackendRedis, c.LockBackend)
	}
	if c.FinalizeRetries < 0 {
		return fmt.Errorf("FINALIZE_RETRIES cannot be negative")
	}
	return nil
}

// RequireSecrets is checked by the server command only; CLI maintenance
// commands work without JWT secrets.
func (c *Config) RequireSecrets() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	return nil
}

// GetLoggerConfig returns the logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// Dialector picks postgres when DATABASE_URL is set and a local sqlite file otherwise.
func (c *Config) Dialector() gorm.Dialector {
	if c.DatabaseURL != "" {
		return postgres.Open(c.DatabaseURL)
	}
	return sqlite.Open(c.DatabasePath)
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(cfg.Dialector(), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table the application owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
