package cachestore

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-eight/core/config"
	domainCache "github.com/AzielCF/az-eight/domains/cache"
	"github.com/AzielCF/az-eight/infrastructure/valkey"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StorageKey scopes the snapshot to one account.
func StorageKey(cfg config.OfflineConfig) string {
	return fmt.Sprintf("%s_%s", cfg.StorageKey, cfg.AccountID)
}

// New picks the backend named by cfg.Offline.CacheBackend. db and vk may be nil
// when the matching backend is not selected; an unusable choice falls back to memory.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, vk *valkey.Client) (domainCache.ICacheStore, error) {
	key := StorageKey(cfg.Offline)

	switch cfg.Offline.CacheBackend {
	case "valkey":
		if vk == nil {
			logrus.Warn("[CACHE] Valkey backend selected but no client available, using memory")
			return NewMemoryStore(), nil
		}
		return NewValkeyStore(vk, key), nil
	case "database", "":
		if db == nil {
			logrus.Warn("[CACHE] Database backend selected but no connection available, using memory")
			return NewMemoryStore(), nil
		}
		store := NewGormStore(db, key)
		if err := store.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate cache table: %w", err)
		}
		return store, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Offline.CacheBackend)
	}
}
