package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings returns the non-secret settings currently loaded in memory.
func Settings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":               Global.App.Version,
		"app_debug":                 Global.App.Debug,
		"api_base_url":              Global.API.BaseURL,
		"offline_cache_backend":     Global.Offline.CacheBackend,
		"offline_cache_ttl":         Global.Offline.CacheTTL.String(),
		"offline_threshold":         Global.Offline.OfflineThreshold,
		"offline_max_recovery":      Global.Offline.MaxRecoveryAttempts,
		"retry_max_retries":         Global.Retry.MaxRetries,
		"refresh_device_interval":   Global.Refresh.Device.String(),
		"refresh_user_interval":     Global.Refresh.User.String(),
		"refresh_base_interval":     Global.Refresh.Base.String(),
		"health_check_interval":     Global.Offline.HealthCheckInterval.String(),
		"fetch_worker_pool_size":    Global.WorkerPool.Size,
		"fetch_worker_queue_size":   Global.WorkerPool.QueueSize,
		"database_driver":           Global.Database.Driver,
		"valkey_enabled":            Global.Database.ValkeyEnabled,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
