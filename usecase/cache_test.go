package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
	"github.com/AzielCF/az-eight/infrastructure/cachestore"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Name() string { return "failing" }

func (failingStore) Load(context.Context) (*domainCache.Snapshot, error) {
	return nil, errors.New("disk unreadable")
}

func (failingStore) Save(context.Context, domainCache.Snapshot) error {
	return errors.New("disk full")
}

func TestCache_EmptyIsInvalid(t *testing.T) {
	c := NewCacheService(cachestore.NewMemoryStore())
	assert.False(t, c.IsValid())

	_, ok := c.Get("device_data")
	assert.False(t, ok)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 0.0, s.HitRate)
}

func TestCache_SetThenGetWithinTTL(t *testing.T) {
	clock := newTestClock()
	c := NewCacheService(cachestore.NewMemoryStore(), WithCacheClock(clock.Now))

	c.Set("device_data", json.RawMessage(`{"a":1}`))
	clock.Advance(59 * time.Minute)

	v, ok := c.Get("device_data")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(v))

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Writes)
	assert.Equal(t, 100.0, s.HitRate)
	assert.Equal(t, 1, s.Size)
}

func TestCache_ExpiredHidesEveryKey(t *testing.T) {
	clock := newTestClock()
	c := NewCacheService(cachestore.NewMemoryStore(), WithCacheClock(clock.Now))

	c.Set("device_data", json.RawMessage(`1`))
	c.Set("user_data", json.RawMessage(`2`))
	clock.Advance(61 * time.Minute)

	assert.False(t, c.IsValid())
	_, ok := c.Get("user_data")
	assert.False(t, ok)
	// entries stay until cleared
	assert.Equal(t, 2, c.Stats().Size)
}

func TestCache_SetRefreshesFreshnessForAllKeys(t *testing.T) {
	clock := newTestClock()
	c := NewCacheService(cachestore.NewMemoryStore(), WithCacheClock(clock.Now))

	c.Set("device_data", json.RawMessage(`1`))
	clock.Advance(50 * time.Minute)
	c.Set("user_data", json.RawMessage(`2`))
	clock.Advance(50 * time.Minute)

	v, ok := c.Get("device_data")
	require.True(t, ok)
	assert.Equal(t, "1", string(v))
}

func TestCache_MissingKeyIsMiss(t *testing.T) {
	c := NewCacheService(cachestore.NewMemoryStore())
	c.Set("device_data", json.RawMessage(`1`))

	_, ok := c.Get("base_data")
	assert.False(t, ok)
	_, _ = c.Get("device_data")
	_, _ = c.Get("device_data")

	s := c.Stats()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, 66.67, s.HitRate)
}

func TestCache_ClearResetsEverything(t *testing.T) {
	c := NewCacheService(cachestore.NewMemoryStore())
	c.Set("device_data", json.RawMessage(`1`))
	_, _ = c.Get("device_data")

	c.Clear()

	s := c.Stats()
	assert.Equal(t, domainCache.CacheStats{HumanSize: "0 B"}, s)
	assert.False(t, c.IsValid())
	assert.Empty(t, c.Keys())
}

func TestCache_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := cachestore.NewMemoryStore()

	c := NewCacheService(store, WithCacheClock(clock.Now))
	c.Set("device_data", json.RawMessage(`{"x":true}`))
	_, _ = c.Get("device_data")
	require.NoError(t, c.Save(ctx))

	clock.Advance(10 * time.Minute)
	restored := NewCacheService(store, WithCacheClock(clock.Now))
	restored.Load(ctx)

	// the persisted lastUpdate keeps its original age
	s := restored.Stats()
	require.NotNil(t, s.LastUpdate)
	assert.True(t, s.LastUpdate.Equal(clock.Now().Add(-10*time.Minute)))
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, []string{"device_data"}, restored.Keys())
	assert.True(t, restored.IsValid())

	clock.Advance(51 * time.Minute)
	assert.False(t, restored.IsValid())
}

func TestCache_LoadFailureStartsEmpty(t *testing.T) {
	c := NewCacheService(failingStore{})
	c.Load(context.Background())

	s := c.Stats()
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, 0, s.Size)
	assert.False(t, c.IsValid())
}

func TestCache_SaveFailureIsCounted(t *testing.T) {
	c := NewCacheService(failingStore{})
	c.Set("device_data", json.RawMessage(`1`))

	err := c.Save(context.Background())
	var perr *pkgError.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "save", perr.Op)
	assert.Equal(t, int64(1), c.Stats().Errors)

	// in-memory state is unaffected
	_, ok := c.Get("device_data")
	assert.True(t, ok)
}

func TestCache_StatsHumanSize(t *testing.T) {
	c := NewCacheService(cachestore.NewMemoryStore())
	c.Set("device_data", json.RawMessage(`"0123456789"`))
	s := c.Stats()
	assert.Equal(t, int64(12), s.TotalBytes)
	assert.Equal(t, "12 B", s.HumanSize)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCacheService(cachestore.NewMemoryStore())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Set("device_data", json.RawMessage(`1`))
		}()
		go func() {
			defer wg.Done()
			_, _ = c.Get("device_data")
		}()
	}
	wg.Wait()

	s := c.Stats()
	assert.Equal(t, int64(50), s.Writes)
	assert.Equal(t, int64(50), s.TotalRequests)
}
