package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/AzielCF/az-eight/core/config"
	domainCache "github.com/AzielCF/az-eight/domains/cache"
	"github.com/AzielCF/az-eight/infrastructure/valkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func sampleSnapshot() domainCache.Snapshot {
	lu := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domainCache.Snapshot{
		Entries: map[string]json.RawMessage{
			"device_data": json.RawMessage(`{"domain":"device_data","data":{"heating":true}}`),
		},
		LastUpdate: &lu,
		Stats:      domainCache.Counters{Hits: 4, Misses: 1, Writes: 2},
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db
}

func assertSnapshotEqual(t *testing.T, want domainCache.Snapshot, got *domainCache.Snapshot) {
	t.Helper()
	require.NotNil(t, got)
	require.NotNil(t, got.LastUpdate)
	assert.True(t, want.LastUpdate.Equal(*got.LastUpdate))
	assert.Equal(t, want.Stats, got.Stats)
	require.Len(t, got.Entries, len(want.Entries))
	for k, v := range want.Entries {
		assert.JSONEq(t, string(v), string(got.Entries[k]))
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := sampleSnapshot()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSnapshotEqual(t, want, got)

	// stored copy is isolated from caller mutation
	want.Entries["device_data"][0] = 'X'
	again, _ := s.Load(ctx)
	assert.Equal(t, byte('{'), again.Entries["device_data"][0])
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGormStore_RoundTripAndUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newTestDB(t), "eight_sleep_cache_default")
	require.NoError(t, s.InitSchema(ctx))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	first := sampleSnapshot()
	require.NoError(t, s.Save(ctx, first))

	second := sampleSnapshot()
	second.Entries["user_data"] = json.RawMessage(`{"domain":"user_data","data":{}}`)
	second.Stats.Writes = 3
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSnapshotEqual(t, second, got)

	var rows int64
	require.NoError(t, s.db.Model(&CacheSnapshotModel{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestGormStore_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewGormStore(db, "broken")
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, db.Create(&CacheSnapshotModel{Key: "broken", Payload: "{not json"}).Error)

	_, err := s.Load(ctx)
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Offline: config.OfflineConfig{StorageKey: "eight_sleep_cache", AccountID: "acc1"}}

	cfg.Offline.CacheBackend = "memory"
	s, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	cfg.Offline.CacheBackend = "database"
	s, err = New(ctx, cfg, newTestDB(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "database", s.Name())

	cfg.Offline.CacheBackend = "valkey"
	s, err = New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	cfg.Offline.CacheBackend = "s3"
	_, err = New(ctx, cfg, nil, nil)
	assert.Error(t, err)

	assert.Equal(t, "eight_sleep_cache_acc1", StorageKey(cfg.Offline))
}

func TestValkeyStore_RoundTrip(t *testing.T) {
	vk, err := valkey.NewClient(valkey.Config{Address: "localhost:6379", KeyPrefix: "azeight_test", ConnectTimeout: 500 * time.Millisecond})
	if err != nil {
		t.Skip("No valkey")
	}
	defer vk.Close()
	ctx := context.Background()

	s := NewValkeyStore(vk, "roundtrip")
	vk.Inner().Do(ctx, vk.Inner().B().Del().Key(s.key).Build())

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := sampleSnapshot()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSnapshotEqual(t, want, got)
}
