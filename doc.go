// Package mysqlmcp exposes a remote MySQL database to AI agents through
// the Model Context Protocol (MCP), read-only by construction.
//
// Every query funnels through one pipeline: a lexical read-only check
// (SELECT, SHOW, DESCRIBE, and EXPLAIN only), an enforced row limit, a
// hard wall-clock timeout, and credential sanitization of every error
// message that leaves the gateway. Schema tools (list_tables,
// describe_table, preview_table, list_relations, database_stats)
// answer from the information_schema catalog so agents can orient
// themselves without writing SQL.
//
// # Library Usage
//
//	cfg := mysqlmcp.Config{
//		Databases: []mysqlmcp.DatabaseConfig{{
//			Name:   "main",
//			Host:   "127.0.0.1",
//			Port:   3306,
//			User:   "reader",
//			Schema: "shop",
//		}},
//	}
//	g, err := mysqlmcp.New(ctx, cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Close()
//
//	// Query directly...
//	out, err := g.ExecuteQuery(ctx, "main", "SELECT * FROM users", nil, 100)
//
//	// ...or hand the tools to an MCP server.
//	mysqlmcp.RegisterMCPTools(mcpServer, g)
//
// Up to two logical databases can be configured; every tool takes an
// optional database argument naming which one to hit, defaulting to the
// first.
//
// # Error Guidance
//
// Failures are classified (validation_rejected, connection_failed,
// timeout, execution_failed) and their sanitized messages are matched
// against guidance rules, so an agent that queries a missing table is
// told to call list_tables next instead of being left to guess. Custom
// rules go in Config.ErrorPrompts; Config.Sanitization layers extra
// redaction patterns over the built-in credential scrubbing.
package mysqlmcp
