package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/AzielCF/az-eight/core/config"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-eight",
	Short: "Offline-resilient pod API integration",
	Long: `az-eight polls the pod API for device, user and base data, keeps the last good
payloads in a TTL cache and serves them when the API is unreachable. Health
scores, diagnostics and cache controls are exposed over REST, MCP and websocket.`,
}

func init() {
	if _, err := config.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Initialize flags first, before any subcommands are added
	initFlags()

	cobra.OnInitialize(initEnvConfig)
}

// initEnvConfig overlays viper values (flag, then environment) on the loaded config.
func initEnvConfig() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	cfg := config.Global

	// Application settings
	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetString("app_base_path"); v != "" {
		cfg.App.BasePath = v
	}
	if v := viper.GetStringSlice("app_basic_auth"); len(v) > 0 {
		cfg.App.BasicAuth = splitList(v)
	}

	// Offline cache settings
	if v := viper.GetString("offline_cache_backend"); v != "" {
		cfg.Offline.CacheBackend = v
	}
	if v := viper.GetString("offline_account_id"); v != "" {
		cfg.Offline.AccountID = v
	}

	// Remote API settings
	if v := viper.GetString("api_base_url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := viper.GetString("api_token"); v != "" {
		cfg.API.Token = v
	}

	// Fetch worker pool
	if v := viper.GetInt("fetch_worker_pool_size"); v > 0 {
		cfg.WorkerPool.Size = v
	}
	if v := viper.GetInt("fetch_worker_queue_size"); v > 0 {
		cfg.WorkerPool.QueueSize = v
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// splitList accepts both repeated flags and a single comma separated value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func initFlags() {
	cfg := config.Global
	flags := rootCmd.PersistentFlags()

	// Application flags
	flags.StringP("port", "p", cfg.App.Port, "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", cfg.App.Debug, "hide or displaying log with --debug <true/false> | example: --debug=true")
	flags.StringSliceP("basic-auth", "b", cfg.App.BasicAuth, "basic auth credential | -b=yourUsername:yourPassword")
	flags.String("base-path", cfg.App.BasePath, `base path for subpath deployment --base-path <string> | example: --base-path="/eight"`)

	// Offline cache flags
	flags.String("cache-backend", cfg.Offline.CacheBackend, `where the offline cache is persisted: memory, database or valkey | example: --cache-backend=valkey`)
	flags.String("account-id", cfg.Offline.AccountID, `account the persisted cache belongs to | example: --account-id="home"`)

	// Remote API flags
	flags.String("api-base-url", cfg.API.BaseURL, `pod API base url | example: --api-base-url="https://client-api.8slp.net/v1"`)
	flags.String("api-token", cfg.API.Token, "bearer token for the pod API")

	// Fetch worker pool flags
	flags.Int("fetch-workers", cfg.WorkerPool.Size, `number of refresh workers --fetch-workers <number> | example: --fetch-workers=3`)
	flags.Int("fetch-queue-size", cfg.WorkerPool.QueueSize, `queue size per refresh worker --fetch-queue-size <number> | example: --fetch-queue-size=16`)

	bind := map[string]string{
		"app_port":                "port",
		"app_debug":               "debug",
		"app_basic_auth":          "basic-auth",
		"app_base_path":           "base-path",
		"offline_cache_backend":   "cache-backend",
		"offline_account_id":      "account-id",
		"api_base_url":            "api-base-url",
		"api_token":               "api-token",
		"fetch_worker_pool_size":  "fetch-workers",
		"fetch_worker_queue_size": "fetch-queue-size",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.Fatalf("failed to bind flag %s: %v", flag, err)
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
