package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// StorageConfig holds the per-tenant storage layout
type StorageConfig struct {
	// DataDir is the directory holding one <slug>.db file per tenant
	DataDir string
	// UploadDir is the root of the static upload tree served at /static/uploads
	UploadDir string
	// BusyTimeout is forwarded to SQLite as a busy_timeout pragma
	BusyTimeout time.Duration
	LogLevel    logger.LogLevel
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// SeedConfig holds the bootstrap records written on first-ever tenant creation.
// Credentials are deployment-specific and must come from the environment.
type SeedConfig struct {
	AdminEmails   []string
	AdminPassword string
}

// ChatConfig holds messaging configuration
type ChatConfig struct {
	// PageLimit bounds how many messages one conversation fetch returns
	PageLimit int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	Storage StorageConfig
	Server  ServerConfig
	Seed    SeedConfig
	Chat    ChatConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		Storage: StorageConfig{
			DataDir:     getEnv("DATA_DIR", "./data/dbs"),
			UploadDir:   getEnv("UPLOAD_DIR", "./static/uploads"),
			BusyTimeout: getEnvAsDuration("DB_BUSY_TIMEOUT", 5*time.Second),
			LogLevel:    getEnvAsLogLevel("DB_LOG_LEVEL", logger.Silent),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Seed: SeedConfig{
			AdminEmails:   getEnvAsList("SEED_ADMIN_EMAILS", "admin@altair.local"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", "cambiame"),
		},
		Chat: ChatConfig{
			PageLimit: getEnvAsInt("CHAT_PAGE_LIMIT", 50),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "altair"),
		},
	}

	return config, nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("data_dir", c.Storage.DataDir),
		zap.String("upload_dir", c.Storage.UploadDir),
		zap.String("server_port", c.Server.Port),
		zap.Int("chat_page_limit", c.Chat.PageLimit),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as comma-separated lists
func getEnvAsList(key, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
