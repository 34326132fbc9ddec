package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SchemaDescriber returns human-readable descriptions of the queryable
// tables for the list_schema tool.
type SchemaDescriber interface {
	DescribeSchema() []string
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Agent  QuestionProcessor
	Schema SchemaDescriber
}

// NewMCPServer creates an MCP server exposing the question pipeline as a
// tool, so MCP-speaking clients can query the database in natural language.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"askdb",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("askdb: ask questions about the sales database in natural language."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_database",
			mcp.WithDescription("Answer a natural-language question by generating and running a read-only SQL query."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Caller identity used for conversation history (default anonymous)")),
		),
		mcpAskDatabase(deps),
	)

	s.AddTool(
		mcp.NewTool("list_schema",
			mcp.WithDescription("Describe the queryable tables, their columns, and relationships."),
		),
		mcpListSchema(deps),
	)

	return s
}

func mcpAskDatabase(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		userID := req.GetString("user_id", "")

		outcome := deps.Agent.Process(ctx, userID, question)

		payload, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal outcome: %v", err)), nil
		}
		return mcpText(string(payload)), nil
	}
}

func mcpListSchema(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var out string
		for _, desc := range deps.Schema.DescribeSchema() {
			out += desc + "\n\n"
		}
		return mcpText(out), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

func mcpError(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError(msg)
}
