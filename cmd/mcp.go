package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AzielCF/az-eight/core/config"
	"github.com/AzielCF/az-eight/ui/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the diagnostics MCP server using SSE",
	Long:  `Start an MCP (Model Context Protocol) server over Server-Sent Events exposing health_check, performance_check, clear_cache and connection_status.`,
	Run:   mcpServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("mcp-port", "", "Port for the SSE MCP server (default MCP_PORT or 8080)")
	mcpCmd.Flags().String("host", "", "Host for the SSE MCP server (default MCP_HOST or localhost)")
}

func mcpServer(cmd *cobra.Command, _ []string) {
	cfg := config.Global
	if port, _ := cmd.Flags().GetString("mcp-port"); port != "" {
		cfg.MCP.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.MCP.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := mustNewApp(ctx)
	application.Start(ctx)

	mcpServer := server.NewMCPServer(
		"az-eight diagnostics MCP server",
		cfg.App.Version,
		server.WithToolCapabilities(true),
	)

	diagnosticsHandler := mcp.InitMcpDiagnostics(application.Health)
	diagnosticsHandler.AddDiagnosticsTools(mcpServer)

	baseURL := fmt.Sprintf("http://%s:%s", cfg.MCP.Host, cfg.MCP.Port)
	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(baseURL),
		server.WithKeepAlive(true),
	)

	addr := fmt.Sprintf("%s:%s", cfg.MCP.Host, cfg.MCP.Port)
	logrus.Printf("[MCP] Starting SSE server on %s", addr)
	logrus.Printf("[MCP] SSE endpoint: %s/sse", baseURL)
	logrus.Printf("[MCP] Message endpoint: %s/message", baseURL)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[MCP] Reception of termination signal, shutting down gracefully...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("[MCP] Error during SSE shutdown: %v", err)
		}
		cancel()
		application.Stop(shutdownCtx)
		os.Exit(0)
	}()

	if err := sseServer.Start(addr); err != nil {
		logrus.Fatalf("Failed to start SSE server: %v", err)
	}
}
