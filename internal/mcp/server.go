// Package mcp exposes the diagnostic tool registry over the Model Context
// Protocol so external AI assistants can query the PeopleSoft error tables
// and SOP library directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/psops/sentry/internal/agent/tools"
	"github.com/psops/sentry/internal/logging"
	"github.com/psops/sentry/internal/sop"
)

// SentryServer wraps an mcp-go server around the tool registry.
type SentryServer struct {
	mcpServer *server.MCPServer
	registry  *tools.Registry
	catalog   *sop.Catalog
	logger    *logging.Logger
}

// NewSentryServer creates an MCP server advertising every registered tool.
func NewSentryServer(registry *tools.Registry, catalog *sop.Catalog, version string) *SentryServer {
	mcpServer := server.NewMCPServer(
		"PeopleSoft Sentry MCP Server",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &SentryServer{
		mcpServer: mcpServer,
		registry:  registry,
		catalog:   catalog,
		logger:    logging.GetLogger("mcp"),
	}

	s.registerTools()
	s.registerPrompts()
	return s
}

func (s *SentryServer) registerTools() {
	for _, tool := range s.registry.List() {
		schemaJSON, err := json.Marshal(tool.InputSchema())
		if err != nil {
			// Schemas are static literals; a marshal failure is a programming error.
			panic(fmt.Sprintf("failed to marshal schema for tool %s: %v", tool.Name(), err))
		}

		mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schemaJSON)
		s.mcpServer.AddTool(mcpTool, s.createToolHandler(tool.Name()))
		s.logger.Debug("Registered MCP tool %s", tool.Name())
	}
}

// createToolHandler adapts the registry's contained execution to the
// mcp-go handler signature. Tool failures become MCP error results,
// never handler errors.
func (s *SentryServer) createToolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result := s.registry.Execute(ctx, name, args)
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}
		return mcp.NewToolResultText(result.Content()), nil
	}
}

func (s *SentryServer) registerPrompts() {
	healthCheckPrompt := mcp.Prompt{
		Name:        "peoplesoft_health_check",
		Description: "Run a full PeopleSoft health check: gather error data, match SOPs, and produce a root-cause analysis",
	}

	s.mcpServer.AddPrompt(healthCheckPrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text := `Perform a PeopleSoft health check:

1. Call get_system_summary for the overall error counts.
2. Call get_ib_errors and get_process_errors for the failing messages and processes.
3. For each error, call lookup_sop with the error text to resolve the standard operating procedure.
4. Produce a concise Root-Cause Analysis with prioritised Next Steps and note which SOPs apply.

Pre-loaded SOP knowledge base:

` + s.catalog.PromptBlock()

		return &mcp.GetPromptResult{
			Description: "PeopleSoft health check workflow",
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.TextContent{
						Type: "text",
						Text: text,
					},
				},
			},
		}, nil
	})
}

// MCPServer returns the underlying mcp-go server for transport mounting.
func (s *SentryServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *SentryServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
