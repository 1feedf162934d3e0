package mysqlmcp

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the gateway's tools on the given MCP
// server. Every tool is read-only; the database argument is optional
// everywhere and falls back to the first configured logical database.
func RegisterMCPTools(mcpServer *server.MCPServer, g *Gateway) {
	registrations := []struct {
		def     mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{runQueryTool(), g.handleRunQuery},
		{listTablesTool(), g.handleListTables},
		{describeTableTool(), g.handleDescribeTable},
		{previewTableTool(), g.handlePreviewTable},
		{listRelationsTool(), g.handleListRelations},
		{databaseStatsTool(), g.handleDatabaseStats},
	}
	for _, reg := range registrations {
		mcpServer.AddTool(reg.def, g.loggedToolHandler(reg.def.Name, reg.handler))
	}
}

func runQueryTool() mcp.Tool {
	return mcp.NewTool("run_query",
		mcp.WithDescription("Run a read-only SQL query (SELECT, SHOW, DESCRIBE, or EXPLAIN) against the MySQL database. Returns rows as JSON. Row count is capped by limit (default 1000, max 5000); truncated is set when rows were cut off."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL statement to run")),
		mcp.WithString("database", mcp.Description("Logical database to query (defaults to the first configured database)")),
		mcp.WithArray("params", mcp.Description("Positional values bound to ? placeholders in the query")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 1000, max 5000)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (g *Gateway) handleRunQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError("missing sql parameter"), nil
	}
	var params []interface{}
	if raw, ok := req.GetArguments()["params"].([]interface{}); ok {
		params = raw
	}

	outcome, err := g.ExecuteQuery(ctx, req.GetString("database", ""), sqlText, params, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(g.toolError(err)), nil
	}
	jsonBytes, err := json.Marshal(outcome)
	if err != nil {
		return mcp.NewToolResultError("failed to encode query result"), nil
	}
	payload, capped := capResult(string(jsonBytes), g.config.Query.MaxResultLength)
	if capped {
		return mcp.NewToolResultError(payload), nil
	}
	return mcp.NewToolResultText(payload), nil
}

func listTablesTool() mcp.Tool {
	return mcp.NewTool("list_tables",
		mcp.WithDescription("List the tables and views in the database with storage engine, estimated row counts, and on-disk sizes."),
		mcp.WithString("database", mcp.Description("Logical database to inspect (defaults to the first configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (g *Gateway) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listing, err := g.ListTables(ctx, req.GetString("database", ""))
	if err != nil {
		return mcp.NewToolResultError(g.toolError(err)), nil
	}
	return toolJSON(listing, "failed to encode table list")
}

func describeTableTool() mcp.Tool {
	return mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the schema of a table: columns with types, nullability and defaults, indexes, and foreign keys."),
		mcp.WithString("table", mcp.Required(), mcp.Description("Name of the table to describe")),
		mcp.WithString("database", mcp.Description("Logical database containing the table (defaults to the first configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (g *Gateway) handleDescribeTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("missing table parameter"), nil
	}
	description, err := g.DescribeTable(ctx, req.GetString("database", ""), table)
	if err != nil {
		return mcp.NewToolResultError(g.toolError(err)), nil
	}
	return toolJSON(description, "failed to encode table description")
}

func previewTableTool() mcp.Tool {
	return mcp.NewTool("preview_table",
		mcp.WithDescription("Preview a few rows from a table without writing SQL. Long text values are shortened for display. Returns 10 rows by default, 100 at most."),
		mcp.WithString("table", mcp.Required(), mcp.Description("The table name to preview")),
		mcp.WithArray("columns", mcp.Description("Column names to include (case-insensitive; defaults to all columns)")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 10, max 100)")),
		mcp.WithString("database", mcp.Description("Logical database containing the table (defaults to the first configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (g *Gateway) handlePreviewTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := req.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("missing table parameter"), nil
	}
	preview, err := g.PreviewTable(ctx, req.GetString("database", ""), table, req.GetStringSlice("columns", nil), req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(g.toolError(err)), nil
	}
	return toolJSON(preview, "failed to encode preview")
}

func listRelationsTool() mcp.Tool {
	return mcp.NewTool("list_relations",
		mcp.WithDescription("List foreign-key relationships between tables, classified as one-to-one or one-to-many."),
		mcp.WithString("table", mcp.Description("Restrict to relationships touching this table (defaults to the whole schema)")),
		mcp.WithString("database", mcp.Description("Logical database to inspect (defaults to the first configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (g *Gateway) handleListRelations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	relations, err := g.ListRelations(ctx, req.GetString("database", ""), req.GetString("table", ""))
	if err != nil {
		return mcp.NewToolResultError(g.toolError(err)), nil
	}
	return toolJSON(relations, "failed to encode relations")
}

func databaseStatsTool() mcp.Tool {
	return mcp.NewTool("database_stats",
		mcp.WithDescription("Summarize the database: table and view counts, total estimated rows and bytes, and the largest tables by rows and by size."),
		mcp.WithString("database", mcp.Description("Logical database to summarize (defaults to the first configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (g *Gateway) handleDatabaseStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := g.DatabaseStats(ctx, req.GetString("database", ""))
	if err != nil {
		return mcp.NewToolResultError(g.toolError(err)), nil
	}
	return toolJSON(stats, "failed to encode stats")
}

// toolJSON marshals v into a text result, substituting encodeErr when
// marshaling fails.
func toolJSON(v interface{}, encodeErr string) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(encodeErr), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// loggedToolHandler wraps a tool handler to log each call with a
// correlation id and the request and response lengths.
func (g *Gateway) loggedToolHandler(tool string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := next(ctx, req)
		g.logger.Info().
			Str("tool", tool).
			Str("call_id", uuid.NewString()).
			Int("request_bytes", requestLength(req)).
			Int("response_bytes", resultLength(res)).
			Msg("tool call")
		return res, err
	}
}

// capResult enforces the configured rune-count ceiling on a marshaled
// result payload. The boolean reports whether the payload was cut, in
// which case it carries advice instead of well-formed JSON.
func capResult(payload string, max int) (string, bool) {
	if utf8.RuneCountInString(payload) <= max {
		return payload, false
	}
	runes := []rune(payload)
	return string(runes[:max]) + "...[truncated] Result is too long! Add limits in your query!", true
}

// requestLength reports how many JSON bytes the caller sent as tool
// arguments.
func requestLength(req mcp.CallToolRequest) int {
	if args := req.GetArguments(); len(args) > 0 {
		if b, err := json.Marshal(args); err == nil {
			return len(b)
		}
	}
	return 0
}

// resultLength sums the text content of a tool result. Non-text
// content does not count.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, content := range result.Content {
		text, ok := content.(mcp.TextContent)
		if !ok {
			continue
		}
		total += len(text.Text)
	}
	return total
}
