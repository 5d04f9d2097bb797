package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sqlops/internal/op"
)

func newMCPCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve sqlops tools over the Model Context Protocol on stdio",
		Long: `Serve sqlops over MCP on stdin/stdout so an agent can submit operation
lists directly. Tools: run_pipeline, normalize_column, list_tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.ServeStdio(newMCPServer(appFrom(cmd), version))
		},
	}
}

func newMCPServer(a *app, version string) *server.MCPServer {
	s := server.NewMCPServer("sqlops", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Execute an ordered list of {tool_name, args} operations and return results and status lines as JSON."),
		mcp.WithString("operations",
			mcp.Required(),
			mcp.Description(`JSON or YAML operation list, e.g. [{"tool_name":"Query","args":{"conditions":{"table":"workers","fields":["Name"]}}}]`),
		),
	), a.mcpRunPipeline)

	s.AddTool(mcp.NewTool("normalize_column",
		mcp.WithDescription("Map a free-form column name onto the catalog."),
		mcp.WithString("name", mcp.Required(), mcp.Description("column name as written by a user")),
	), a.mcpNormalizeColumn)

	s.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the operation tools sqlops can execute."),
	), a.mcpListTools)

	return s
}

func (a *app) mcpRunPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("operations")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ops, err := op.Decode([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := a.execute(ctx, ops, "mcp", "")
	return jsonResult(outcomeDoc(out))
}

func (a *app) mcpNormalizeColumn(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m := a.norm.Match(name)
	return jsonResult(matchInfo{Input: name, Column: m.Name, Kind: m.Kind.String(), Ratio: m.Ratio})
}

func (a *app) mcpListTools(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(toolInfos(a.reg, nil))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
