package usecase

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type CacheOption func(*cacheService)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(s *cacheService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithCacheClock(now func() time.Time) CacheOption {
	return func(s *cacheService) { s.now = now }
}

// cacheService has one freshness clock for all keys: a Set on any key
// revalidates every entry, and once the TTL passes nothing is served.
type cacheService struct {
	mu         sync.Mutex
	store      domainCache.ICacheStore
	ttl        time.Duration
	now        func() time.Time
	entries    map[string]json.RawMessage
	lastUpdate *time.Time
	counters   domainCache.Counters

	// serializes store writes so the newest snapshot always lands last
	saveMu sync.Mutex
}

func NewCacheService(store domainCache.ICacheStore, opts ...CacheOption) domainCache.ICacheUsecase {
	s := &cacheService{
		store:   store,
		ttl:     domainCache.DefaultTTL,
		now:     time.Now,
		entries: make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *cacheService) Load(ctx context.Context) {
	snap, err := s.store.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logrus.WithError(&pkgError.PersistenceError{Op: "load", Err: err}).
			Warnf("[CACHE] Failed to load cache from %s, starting empty", s.store.Name())
		s.entries = make(map[string]json.RawMessage)
		s.counters.Errors++
		return
	}
	if snap == nil {
		logrus.Debugf("[CACHE] No persisted cache in %s", s.store.Name())
		return
	}

	s.entries = make(map[string]json.RawMessage, len(snap.Entries))
	for k, v := range snap.Entries {
		s.entries[k] = v
	}
	s.lastUpdate = nil
	if snap.LastUpdate != nil {
		lu := *snap.LastUpdate
		s.lastUpdate = &lu
	}
	s.counters = snap.Stats
	logrus.Debugf("[CACHE] Loaded %d entries from %s", len(s.entries), s.store.Name())
}

func (s *cacheService) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.snapshot()
	if err := s.store.Save(ctx, snap); err != nil {
		perr := &pkgError.PersistenceError{Op: "save", Err: err}
		logrus.WithError(perr).Warnf("[CACHE] Failed to save cache to %s", s.store.Name())
		s.mu.Lock()
		s.counters.Errors++
		s.mu.Unlock()
		return perr
	}
	logrus.Debugf("[CACHE] Saved %d entries to %s", len(snap.Entries), s.store.Name())
	return nil
}

func (s *cacheService) snapshot() domainCache.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]json.RawMessage, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	var lu *time.Time
	if s.lastUpdate != nil {
		t := *s.lastUpdate
		lu = &t
	}
	return domainCache.Snapshot{Entries: entries, LastUpdate: lu, Stats: s.counters}
}

func (s *cacheService) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked()
}

func (s *cacheService) validLocked() bool {
	if s.lastUpdate == nil {
		return false
	}
	return s.now().Sub(*s.lastUpdate) < s.ttl
}

func (s *cacheService) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validLocked() {
		s.counters.Misses++
		return nil, false
	}
	v, ok := s.entries[key]
	if !ok {
		s.counters.Misses++
		return nil, false
	}
	s.counters.Hits++
	return v, true
}

func (s *cacheService) Set(key string, value json.RawMessage) {
	stored := make(json.RawMessage, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = stored
	now := s.now()
	s.lastUpdate = &now
	s.counters.Writes++
}

func (s *cacheService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]json.RawMessage)
	s.lastUpdate = nil
	s.counters = domainCache.Counters{}
	logrus.Info("[CACHE] Cache cleared")
}

func (s *cacheService) Stats() domainCache.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.counters.Hits + s.counters.Misses
	var hitRate float64
	if total > 0 {
		hitRate = math.Round(float64(s.counters.Hits)/float64(total)*100*100) / 100
	}
	var bytes int64
	for _, v := range s.entries {
		bytes += int64(len(v))
	}
	var lu *time.Time
	if s.lastUpdate != nil {
		t := *s.lastUpdate
		lu = &t
	}
	return domainCache.CacheStats{
		Hits:          s.counters.Hits,
		Misses:        s.counters.Misses,
		Writes:        s.counters.Writes,
		Errors:        s.counters.Errors,
		HitRate:       hitRate,
		TotalRequests: total,
		Size:          len(s.entries),
		LastUpdate:    lu,
		TotalBytes:    bytes,
		HumanSize:     humanize.Bytes(uint64(bytes)),
	}
}

func (s *cacheService) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
