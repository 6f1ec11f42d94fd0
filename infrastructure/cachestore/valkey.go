package cachestore

import (
	"context"
	"encoding/json"
	"fmt"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
	"github.com/AzielCF/az-eight/infrastructure/valkey"
)

// ValkeyStore keeps the snapshot as one JSON string so every server of a
// deployment starts from the same cache.
type ValkeyStore struct {
	client *valkey.Client
	key    string
}

func NewValkeyStore(client *valkey.Client, storageKey string) *ValkeyStore {
	return &ValkeyStore{client: client, key: client.Key("cache", storageKey)}
}

func (s *ValkeyStore) Name() string { return "valkey" }

func (s *ValkeyStore) Load(ctx context.Context) (*domainCache.Snapshot, error) {
	inner := s.client.Inner()
	raw, err := inner.Do(ctx, inner.B().Get().Key(s.key).Build()).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache snapshot %s: %w", s.key, err)
	}

	var snap domainCache.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cache snapshot %s: %w", s.key, err)
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]json.RawMessage)
	}
	return &snap, nil
}

func (s *ValkeyStore) Save(ctx context.Context, snap domainCache.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cache snapshot: %w", err)
	}
	inner := s.client.Inner()
	if err := inner.Do(ctx, inner.B().Set().Key(s.key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to save cache snapshot %s: %w", s.key, err)
	}
	return nil
}
