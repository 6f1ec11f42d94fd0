package cachestore

import (
	"context"
	"encoding/json"
	"sync"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
)

// MemoryStore keeps the snapshot in process. It survives cache Clear but not a restart.
type MemoryStore struct {
	mu   sync.Mutex
	snap *domainCache.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Load(ctx context.Context) (*domainCache.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, nil
	}
	cp := copySnapshot(*s.snap)
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, snap domainCache.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := copySnapshot(snap)
	s.mu.Lock()
	s.snap = &cp
	s.mu.Unlock()
	return nil
}

func copySnapshot(in domainCache.Snapshot) domainCache.Snapshot {
	out := domainCache.Snapshot{
		Entries: make(map[string]json.RawMessage, len(in.Entries)),
		Stats:   in.Stats,
	}
	for k, v := range in.Entries {
		out.Entries[k] = append(json.RawMessage(nil), v...)
	}
	if in.LastUpdate != nil {
		t := *in.LastUpdate
		out.LastUpdate = &t
	}
	return out
}

