package mcp

import (
	"context"
	"fmt"
	"strconv"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type DiagnosticsHandler struct {
	healthService domainHealth.IHealthUsecase
}

func InitMcpDiagnostics(healthService domainHealth.IHealthUsecase) *DiagnosticsHandler {
	return &DiagnosticsHandler{healthService: healthService}
}

func (h *DiagnosticsHandler) AddDiagnosticsTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolHealthCheck(), h.handleHealthCheck)
	mcpServer.AddTool(h.toolPerformanceCheck(), h.handlePerformanceCheck)
	mcpServer.AddTool(h.toolClearCache(), h.handleClearCache)
	mcpServer.AddTool(h.toolConnectionStatus(), h.handleConnectionStatus)
}

func (h *DiagnosticsHandler) toolHealthCheck() mcp.Tool {
	return mcp.NewTool(
		"health_check",
		mcp.WithDescription("Score connection, cache and recovery health of the integration and list issues with recommendations."),
		mcp.WithTitleAnnotation("Health Check"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithBoolean("detailed",
			mcp.Description("Attach the full diagnostics report."),
			mcp.DefaultBool(false),
		),
	)
}

func (h *DiagnosticsHandler) handleHealthCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detailed, err := optionalBool(request, "detailed", false)
	if err != nil {
		return nil, err
	}

	report := h.healthService.PerformHealthCheck(ctx, detailed)
	fallback := fmt.Sprintf("Health %s (score %d), %d issue(s)", report.Status, report.OverallScore, len(report.Issues))
	result := mcp.NewToolResultStructured(report, fallback)
	result.IsError = report.Status == domainHealth.StatusError
	return result, nil
}

func (h *DiagnosticsHandler) toolPerformanceCheck() mcp.Tool {
	return mcp.NewTool(
		"performance_check",
		mcp.WithDescription("Run a health check limited to the selected components."),
		mcp.WithTitleAnnotation("Performance Check"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithBoolean("include_cache",
			mcp.Description("Include the cache component."),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("include_connection",
			mcp.Description("Include the connection component."),
			mcp.DefaultBool(true),
		),
	)
}

func (h *DiagnosticsHandler) handlePerformanceCheck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	includeCache, err := optionalBool(request, "include_cache", true)
	if err != nil {
		return nil, err
	}
	includeConnection, err := optionalBool(request, "include_connection", true)
	if err != nil {
		return nil, err
	}
	report := h.healthService.PerformanceCheck(ctx, includeCache, includeConnection)
	fallback := fmt.Sprintf("Performance %s (score %d)", report.Status, report.OverallScore)
	return mcp.NewToolResultStructured(report, fallback), nil
}

func (h *DiagnosticsHandler) toolClearCache() mcp.Tool {
	return mcp.NewTool(
		"clear_cache",
		mcp.WithDescription("Drop every cached entry and persist the empty cache. Requires confirm=true."),
		mcp.WithTitleAnnotation("Clear Cache"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithBoolean("confirm",
			mcp.Description("Must be true to actually clear the cache."),
			mcp.DefaultBool(false),
		),
	)
}

func (h *DiagnosticsHandler) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, err := optionalBool(request, "confirm", false)
	if err != nil {
		return nil, err
	}

	res := h.healthService.ClearCache(ctx, confirm)
	result := mcp.NewToolResultStructured(res, res.Message)
	result.IsError = !res.Success
	return result, nil
}

func (h *DiagnosticsHandler) toolConnectionStatus() mcp.Tool {
	return mcp.NewTool(
		"connection_status",
		mcp.WithDescription("Report online state, request counters and cache figures of the remote API connection."),
		mcp.WithTitleAnnotation("Connection Status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func (h *DiagnosticsHandler) handleConnectionStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attrs := h.healthService.ConnectionAttributes()
	return mcp.NewToolResultStructured(attrs, attrs.StatusMessage), nil
}

func optionalBool(request mcp.CallToolRequest, key string, def bool) (bool, error) {
	value, ok := request.GetArguments()[key]
	if !ok || value == nil {
		return def, nil
	}
	return toBool(value)
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("unable to parse boolean value %q", v)
		}
		return parsed, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("unsupported boolean value type %T", value)
	}
}
