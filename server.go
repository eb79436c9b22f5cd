package queryorch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const Version = "1.0.0"

// NewServer creates the MCP server exposing the engine as tools.
func NewServer(serverName string, client *QueryOrchClient) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		serverName,
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Query orchestration server: answers questions from a tenant's knowledge base, generates chart specifications and replies to small talk"),
	)

	mcpServer.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a question using the tenant knowledge base, a generated chart, or a direct reply, whichever fits the question"),
			mcp.WithString("query", mcp.Required(), mcp.Description("The user's question or request")),
			mcp.WithString("tenant", mcp.Description("Tenant whose knowledge base is searched (default: configured default tenant)")),
		),
		HandleAsk(client),
	)
	mcpServer.AddTool(
		mcp.NewTool("classify",
			mcp.WithDescription("Show which capabilities (retrieval, chart, direct) would handle a query"),
			mcp.WithString("query", mcp.Required(), mcp.Description("The query to classify")),
		),
		HandleClassify(client),
	)
	mcpServer.AddTool(
		mcp.NewTool("search-documents",
			mcp.WithDescription("Keyword search over a tenant's knowledge base, listing every document when nothing matches"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
			mcp.WithString("tenant", mcp.Description("Tenant to search (default: configured default tenant)")),
			mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum documents to return (max: %d)", config.MaxFetchLimit))),
		),
		HandleSearchDocuments(client),
	)
	return mcpServer
}

// tenantFrom applies the configured default tenant when the caller named none.
func tenantFrom(request mcp.CallToolRequest, cfg *config.Config) schema.Tenant {
	t := schema.NewTenant(request.GetString("tenant", ""))
	if t.ID == "" {
		t = schema.NewTenant(cfg.Server.DefaultTenant)
	}
	return t
}

func HandleAsk(client *QueryOrchClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		q := schema.NewQuery(query, tenantFrom(request, client.Config()))
		resp, err := client.Ask(ctx, q)
		if err != nil {
			logger.Errorf("mcp ask failed, query_id=%s: %v", q.ID, err)
			resp = schema.ErrorResponse(err)
		}
		return jsonResult(resp, err != nil)
	}
}

func HandleClassify(client *QueryOrchClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		d := client.Classify(ctx, query)
		return jsonResult(map[string]interface{}{
			"retrieval": d.WantsRetrieval,
			"chart":     d.WantsChart,
			"direct":    d.WantsDirect,
			"rationale": d.Rationale,
			"source":    d.Source,
		}, false)
	}
}

func HandleSearchDocuments(client *QueryOrchClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		limit := request.GetInt("limit", 0)
		if limit > config.MaxFetchLimit {
			limit = config.MaxFetchLimit
		}
		res, err := client.Search(ctx, tenantFrom(request, client.Config()), query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{
			"strategy":  res.Strategy,
			"documents": res.Documents,
		}, false)
	}
}

func jsonResult(v interface{}, isError bool) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result failed, err: %w", err)
	}
	result := mcp.NewToolResultText(string(data))
	result.IsError = isError
	return result, nil
}
