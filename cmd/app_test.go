package cmd

import (
	"context"
	"testing"

	"github.com/AzielCF/az-eight/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := *config.Global
	cfg.App.StorageDir = t.TempDir()
	cfg.App.ServerID = "srv-test"
	cfg.Offline.CacheBackend = "memory"
	cfg.Database.ValkeyEnabled = false
	return &cfg
}

func TestNewApp_MemoryBackendWiring(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer app.Stop(ctx)

	assert.Nil(t, app.DB)
	assert.Nil(t, app.Valkey)
	assert.Equal(t, "srv-test", app.ServerID)
	assert.False(t, app.Offline.IsOffline())
	assert.Len(t, app.Refresh.Status(), 3)

	report := app.Health.PerformHealthCheck(ctx, false)
	assert.Equal(t, 91, report.OverallScore)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["azeight_connection_online"])
	assert.True(t, names["go_goroutines"])
}

func TestNewApp_DatabaseBackendUsesSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.Offline.CacheBackend = "database"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = ":memory:"

	app, err := NewApp(ctx, cfg)
	require.NoError(t, err)
	defer app.Stop(ctx)

	require.NotNil(t, app.DB)
	result := app.Health.ClearCache(ctx, true)
	assert.True(t, result.Success)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, splitList([]string{"a:1,b:2", " c:3 ", ""}))
	assert.Nil(t, splitList(nil))
}
