package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	MCP        MCPConfig
	Database   DatabaseConfig
	API        APIConfig
	Offline    OfflineConfig
	Retry      RetryConfig
	Refresh    RefreshConfig
	WorkerPool WorkerPoolConfig
}

type AppConfig struct {
	Name               string
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	StorageDir         string
	CorsAllowedOrigins []string
	ServerID           string
}

type MCPConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// APIConfig points at the remote pod API that is polled for data.
type APIConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	UserAgent  string
	DevicePath string
	UserPath   string
	BasePath   string
	HealthPath string
}

type OfflineConfig struct {
	CacheBackend        string // memory, database or valkey
	StorageKey          string
	AccountID           string
	CacheTTL            time.Duration
	OfflineThreshold    int
	ResponseWindow      int
	MaxRecoveryAttempts int
	RecoveryDelay       time.Duration
	HealthHistory       int
	HealthCheckInterval time.Duration
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type RefreshConfig struct {
	Device time.Duration
	User   time.Duration
	Base   time.Duration
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig reads .env (if present) and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("[CONFIG] Failed to read .env file")
	}

	storageDir := getEnv("APP_STORAGE_DIR", "storages")

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Name:               getEnv("APP_NAME", "az-eight"),
		Version:            getEnv("APP_VERSION", "v1.0.0"),
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		StorageDir:         storageDir,
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(storageDir, "cache.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azeight:"),
	}

	apiCfg := APIConfig{
		BaseURL:    getEnv("API_BASE_URL", "https://client-api.8slp.net/v1"),
		Token:      getEnv("API_TOKEN", ""),
		Timeout:    getEnvDuration("API_TIMEOUT", 30*time.Second),
		UserAgent:  getEnv("API_USER_AGENT", "az-eight/"+appCfg.Version),
		DevicePath: getEnv("API_DEVICE_PATH", "/devices/current"),
		UserPath:   getEnv("API_USER_PATH", "/users/me"),
		BasePath:   getEnv("API_BASE_DATA_PATH", "/base/current"),
		HealthPath: getEnv("API_HEALTH_PATH", "/users/me"),
	}

	offlineCfg := OfflineConfig{
		CacheBackend:        getEnv("OFFLINE_CACHE_BACKEND", "database"),
		StorageKey:          getEnv("OFFLINE_STORAGE_KEY", "eight_sleep_cache"),
		AccountID:           getEnv("OFFLINE_ACCOUNT_ID", "default"),
		CacheTTL:            getEnvDuration("OFFLINE_CACHE_TTL", time.Hour),
		OfflineThreshold:    getEnvInt("OFFLINE_THRESHOLD", 3),
		ResponseWindow:      getEnvInt("OFFLINE_RESPONSE_WINDOW", 10),
		MaxRecoveryAttempts: getEnvInt("OFFLINE_MAX_RECOVERY_ATTEMPTS", 5),
		RecoveryDelay:       getEnvDuration("OFFLINE_RECOVERY_DELAY", 30*time.Second),
		HealthHistory:       getEnvInt("HEALTH_HISTORY_SIZE", 10),
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
	}

	cfg := &Config{
		App:      appCfg,
		MCP:      MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		Database: dbCfg,
		API:      apiCfg,
		Offline:  offlineCfg,
		Retry: RetryConfig{
			MaxRetries: getEnvInt("RETRY_MAX_RETRIES", 3),
			BaseDelay:  getEnvDuration("RETRY_BASE_DELAY", time.Second),
			MaxDelay:   getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
		},
		Refresh: RefreshConfig{
			Device: getEnvDuration("REFRESH_DEVICE_INTERVAL", 60*time.Second),
			User:   getEnvDuration("REFRESH_USER_INTERVAL", 300*time.Second),
			Base:   getEnvDuration("REFRESH_BASE_INTERVAL", 60*time.Second),
		},
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("FETCH_WORKER_POOL_SIZE", 3),
			QueueSize: getEnvInt("FETCH_WORKER_QUEUE_SIZE", 16),
		},
	}

	Global = cfg
	return cfg, nil
}
