package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AzielCF/az-eight/core/config"
	"github.com/AzielCF/az-eight/core/database"
	domainCache "github.com/AzielCF/az-eight/domains/cache"
	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/infrastructure/cachestore"
	"github.com/AzielCF/az-eight/infrastructure/metrics"
	"github.com/AzielCF/az-eight/infrastructure/valkey"
	"github.com/AzielCF/az-eight/integrations/podapi"
	"github.com/AzielCF/az-eight/pkg/connstatus"
	"github.com/AzielCF/az-eight/pkg/fetchmonitor"
	"github.com/AzielCF/az-eight/pkg/fetchpool"
	"github.com/AzielCF/az-eight/pkg/retry"
	"github.com/AzielCF/az-eight/pkg/utils"
	"github.com/AzielCF/az-eight/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App owns every long-lived collaborator of one process.
type App struct {
	Config   *config.Config
	ServerID string

	DB     *gorm.DB
	Valkey *valkey.Client
	API    *podapi.Client

	Monitor     *fetchmonitor.Monitor
	Pool        *fetchpool.Pool
	Cache       domainCache.ICacheUsecase
	Offline     domainOffline.IOfflineUsecase
	Refresh     domainOffline.IRefreshUsecase
	Diagnostics domainHealth.IDiagnosticsUsecase
	Health      domainHealth.IHealthUsecase
	Registry    *prometheus.Registry
}

// NewApp wires storage, the API client and the offline stack. The persisted
// cache is loaded before it returns; nothing is polled until Start.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := os.MkdirAll(cfg.App.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	a := &App{
		Config:   cfg,
		ServerID: utils.GetPersistentServerID(cfg.App.ServerID, cfg.App.StorageDir),
	}

	if cfg.Offline.CacheBackend == "database" || cfg.Offline.CacheBackend == "" {
		db, err := database.NewDatabase(cfg)
		if err != nil {
			return nil, err
		}
		a.DB = db
	}

	if cfg.Database.ValkeyEnabled {
		vk, err := valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[CONFIG] Valkey unavailable, continuing without it")
		} else {
			a.Valkey = vk
		}
	}

	store, err := cachestore.New(ctx, cfg, a.DB, a.Valkey)
	if err != nil {
		a.closeStorage()
		return nil, err
	}

	a.API = podapi.New(cfg.API)
	a.Monitor = fetchmonitor.New(50)
	a.Cache = usecase.NewCacheService(store, usecase.WithCacheTTL(cfg.Offline.CacheTTL))
	a.Offline = usecase.NewOfflineManager(a.Cache,
		usecase.WithProbe(a.API.Ping),
		usecase.WithRecovery(cfg.Offline.MaxRecoveryAttempts, cfg.Offline.RecoveryDelay),
		usecase.WithConnectionStatus(connstatus.New(
			connstatus.WithOfflineThreshold(cfg.Offline.OfflineThreshold),
			connstatus.WithResponseWindow(cfg.Offline.ResponseWindow),
		)),
		usecase.WithMonitor(a.Monitor),
	)
	a.Offline.Initialize(ctx)

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.BaseDelay = cfg.Retry.BaseDelay
	policy.MaxDelay = cfg.Retry.MaxDelay

	a.Pool = fetchpool.New(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	a.Refresh = usecase.NewRefreshService(a.Offline, a.API.Fetchers(),
		usecase.WithRetryPolicy(policy),
		usecase.WithFetchPool(a.Pool),
		usecase.WithIntervals(map[domainOffline.Domain]time.Duration{
			domainOffline.DomainDevice: cfg.Refresh.Device,
			domainOffline.DomainUser:   cfg.Refresh.User,
			domainOffline.DomainBase:   cfg.Refresh.Base,
		}),
	)

	a.Diagnostics = usecase.NewDiagnosticsService(usecase.IntegrationIdentity{
		Name:     cfg.App.Name,
		Version:  cfg.App.Version,
		ServerID: a.ServerID,
	}, a.Offline, a.Monitor, a.Refresh)
	a.Health = usecase.NewHealthService(a.Offline,
		usecase.WithHistorySize(cfg.Offline.HealthHistory),
		usecase.WithCheckInterval(cfg.Offline.HealthCheckInterval),
		usecase.WithDiagnostics(a.Diagnostics),
	)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		metrics.NewCollector(a.Offline, a.Health, a.Pool),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logrus.Infof("[CONFIG] %s %s ready (server %s, cache backend %s)", cfg.App.Name, cfg.App.Version, a.ServerID, cfg.Offline.CacheBackend)
	return a, nil
}

// Start begins polling and the periodic health checks. The first refresh
// of every domain runs in the background.
func (a *App) Start(ctx context.Context) {
	go a.Refresh.Start(ctx)
	a.Health.StartPeriodicChecks(ctx)
}

// Stop halts the refresh loops, flushes the cache and closes storage.
func (a *App) Stop(ctx context.Context) {
	logrus.Info("[APP] Stopping application...")
	a.Refresh.Stop()
	a.Pool.Stop()

	if err := a.Offline.Close(ctx); err != nil {
		logrus.WithError(err).Error("[APP] Failed to flush offline cache")
	}
	a.closeStorage()
	logrus.Info("[APP] Application stopped cleanly.")
}

func (a *App) closeStorage() {
	if a.Valkey != nil {
		a.Valkey.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// mustNewApp is used by the commands, which have nothing to fall back to.
func mustNewApp(ctx context.Context) *App {
	app, err := NewApp(ctx, config.Global)
	if err != nil {
		logrus.Fatalf("failed to initialize application: %v", err)
	}
	return app
}
