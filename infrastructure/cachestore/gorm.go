package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CacheSnapshotModel struct {
	Key        string     `gorm:"primaryKey;column:key"`
	Payload    string     `gorm:"column:payload;type:text"`
	LastUpdate *time.Time `gorm:"column:last_update"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (CacheSnapshotModel) TableName() string {
	return "cache_snapshots"
}

// GormStore persists one snapshot row per storage key, on sqlite or postgres.
type GormStore struct {
	db  *gorm.DB
	key string
}

func NewGormStore(db *gorm.DB, key string) *GormStore {
	return &GormStore{db: db, key: key}
}

func (s *GormStore) Name() string { return "database" }

func (s *GormStore) InitSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&CacheSnapshotModel{})
}

func (s *GormStore) Load(ctx context.Context) (*domainCache.Snapshot, error) {
	var m CacheSnapshotModel
	if err := s.db.WithContext(ctx).First(&m, "key = ?", s.key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache snapshot %s: %w", s.key, err)
	}

	var snap domainCache.Snapshot
	if err := json.Unmarshal([]byte(m.Payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cache snapshot %s: %w", s.key, err)
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]json.RawMessage)
	}
	snap.LastUpdate = m.LastUpdate
	return &snap, nil
}

func (s *GormStore) Save(ctx context.Context, snap domainCache.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cache snapshot: %w", err)
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"payload":     string(data),
			"last_update": snap.LastUpdate,
			"updated_at":  now,
		}),
	}).Create(&CacheSnapshotModel{
		Key:        s.key,
		Payload:    string(data),
		LastUpdate: snap.LastUpdate,
		UpdatedAt:  now,
	}).Error
}
