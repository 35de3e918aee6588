package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/psops/sentry/internal/config"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/mcp"
)

var (
	mcpHTTPAddr      string
	mcpTransportType string
	mcpEndpointPath  string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server that exposes the
PeopleSoft diagnostic tools to AI assistants.

Supports two transport modes:
  - stdio: standard input/output mode (default, for subprocess-based MCP clients)
  - http: HTTP server mode with a /health endpoint`,
	Run: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransportType, "transport", "stdio", "Transport type: stdio or http")
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http-addr", ":8082", "HTTP server address (host:port)")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", "/mcp", "HTTP endpoint path for MCP requests")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	if err := setupLog(logLevelFlags); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("mcp")
	logger.Info("Starting Sentry MCP server (transport: %s)", mcpTransportType)

	cfg, err := config.Load(configPath)
	if err != nil {
		HandleError(err, "Configuration error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildCore(ctx, cfg)
	if err != nil {
		HandleError(err, "Startup error")
	}
	defer c.source.Close()
	defer c.Close()

	sentryServer := mcp.NewSentryServer(c.registry, c.catalog, Version)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal: %v, shutting down", sig)
		cancel()
	}()

	switch mcpTransportType {
	case "stdio":
		logger.Info("Serving MCP over stdio")
		if err := sentryServer.ServeStdio(); err != nil {
			HandleError(err, "MCP stdio server error")
		}

	case "http":
		endpointPath := mcpEndpointPath
		if endpointPath == "" {
			endpointPath = "/mcp"
		} else if endpointPath[0] != '/' {
			endpointPath = "/" + endpointPath
		}
		logger.Info("Starting MCP HTTP server on %s (endpoint: %s)", mcpHTTPAddr, endpointPath)

		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		httpSrv := &http.Server{
			Addr:              mcpHTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Stateless mode keeps compatibility with clients that do not
		// manage MCP sessions.
		streamableServer := server.NewStreamableHTTPServer(
			sentryServer.MCPServer(),
			server.WithEndpointPath(endpointPath),
			server.WithStateLess(true),
			server.WithStreamableHTTPServer(httpSrv),
		)
		mux.Handle(endpointPath, streamableServer)

		errCh := make(chan error, 1)
		go func() {
			if err := streamableServer.Start(mcpHTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			logger.Info("Shutting down MCP HTTP server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := streamableServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown: %v", err)
			}
		case err := <-errCh:
			HandleError(err, "MCP HTTP server error")
		}

	default:
		logger.Fatal("Unknown transport type: %s (must be stdio or http)", mcpTransportType)
	}
}
