package cache

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTTL is the single freshness window shared by every entry.
const DefaultTTL = time.Hour

// Counters are the persisted request counters.
type Counters struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Writes int64 `json:"writes"`
	Errors int64 `json:"errors"`
}

type CacheStats struct {
	Hits          int64      `json:"hits"`
	Misses        int64      `json:"misses"`
	Writes        int64      `json:"writes"`
	Errors        int64      `json:"errors"`
	HitRate       float64    `json:"hit_rate"`
	TotalRequests int64      `json:"total_requests"`
	Size          int        `json:"cache_size"`
	LastUpdate    *time.Time `json:"last_update"`
	TotalBytes    int64      `json:"total_bytes"`
	HumanSize     string     `json:"human_size"`
}

// Snapshot is the blob handed to the persistence store.
type Snapshot struct {
	Entries    map[string]json.RawMessage `json:"entries"`
	LastUpdate *time.Time                 `json:"last_update,omitempty"`
	Stats      Counters                   `json:"stats"`
}

// ICacheStore is the durable key-value collaborator. Load returns (nil, nil)
// when nothing has been persisted yet.
type ICacheStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Name() string
}

type ICacheUsecase interface {
	Load(ctx context.Context)
	Save(ctx context.Context) error
	IsValid() bool
	Get(key string) (json.RawMessage, bool)
	Set(key string, value json.RawMessage)
	Clear()
	Stats() CacheStats
	Keys() []string
}
