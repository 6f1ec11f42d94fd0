package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/infrastructure/cachestore"
	"github.com/AzielCF/az-eight/usecase"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) (*DiagnosticsHandler, domainOffline.IOfflineUsecase) {
	t.Helper()
	offline := usecase.NewOfflineManager(usecase.NewCacheService(cachestore.NewMemoryStore()))
	t.Cleanup(func() { _ = offline.Close(context.Background()) })
	diag := usecase.NewDiagnosticsService(usecase.IntegrationIdentity{Name: "az-eight"}, offline, nil, nil)
	return InitMcpDiagnostics(usecase.NewHealthService(offline, usecase.WithDiagnostics(diag))), offline
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHealthCheckTool(t *testing.T) {
	h, _ := newHandler(t)

	res, err := h.handleHealthCheck(context.Background(), call("health_check", map[string]any{"detailed": "true"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "score")

	report, ok := res.StructuredContent.(domainHealth.Report)
	require.True(t, ok)
	assert.NotNil(t, report.Diagnostics)
}

func TestPerformanceCheckTool(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	res, err := h.handlePerformanceCheck(ctx, call("performance_check", map[string]any{"include_cache": false}))
	require.NoError(t, err)
	report := res.StructuredContent.(domainHealth.Report)
	assert.Nil(t, report.Cache)
	assert.NotNil(t, report.Connection)

	res, err = h.handlePerformanceCheck(ctx, call("performance_check", map[string]any{"include_cache": false, "include_connection": false}))
	require.NoError(t, err)
	report = res.StructuredContent.(domainHealth.Report)
	assert.NotNil(t, report.Performance)
	assert.Nil(t, report.Cache)
	assert.Nil(t, report.Connection)

	_, err = h.handlePerformanceCheck(ctx, call("performance_check", map[string]any{"include_cache": []int{1}}))
	assert.Error(t, err)
}

func TestClearCacheTool(t *testing.T) {
	h, offline := newHandler(t)
	ctx := context.Background()
	offline.GetWithFallback(ctx, "device_data", func(ctx context.Context) (domainOffline.Payload, error) {
		return domainOffline.Payload{Domain: domainOffline.DomainDevice, Data: json.RawMessage(`{}`), FetchedAt: time.Now()}, nil
	})
	require.Equal(t, 1, offline.HealthMetrics().Cache.Size)

	res, err := h.handleClearCache(ctx, call("clear_cache", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Cache clear not confirmed. Set confirm: true to proceed.", text(t, res))
	assert.Equal(t, 1, offline.HealthMetrics().Cache.Size)

	res, err = h.handleClearCache(ctx, call("clear_cache", map[string]any{"confirm": true}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 0, offline.HealthMetrics().Cache.Size)
}

func TestConnectionStatusTool(t *testing.T) {
	h, _ := newHandler(t)
	res, err := h.handleConnectionStatus(context.Background(), call("connection_status", nil))
	require.NoError(t, err)
	attrs := res.StructuredContent.(domainHealth.ConnectionAttributes)
	assert.Equal(t, "online", attrs.State)
}

func TestToBool(t *testing.T) {
	v, err := toBool("1")
	require.NoError(t, err)
	assert.True(t, v)
	v, err = toBool(0.0)
	require.NoError(t, err)
	assert.False(t, v)
	_, err = toBool("maybe")
	assert.Error(t, err)
}
