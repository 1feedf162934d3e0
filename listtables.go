package mysqlmcp

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// listTablesSQL reads table metadata for the active schema from the
// information_schema catalog. The COALESCE(NULLIF(...)) selector falls
// back to the connection's default schema when none is configured.
const listTablesSQL = `
SELECT
    TABLE_NAME,
    TABLE_TYPE,
    ENGINE,
    TABLE_ROWS,
    COALESCE(DATA_LENGTH, 0) + COALESCE(INDEX_LENGTH, 0),
    TABLE_COMMENT
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
ORDER BY TABLE_NAME`

// ListTables lists the tables and views visible in the named logical
// database, with storage engine, row estimates, and on-disk size from
// the catalog. Row counts are the optimizer's estimates, not exact.
func (g *Gateway) ListTables(ctx context.Context, database string) (*ListTablesOutput, error) {
	start := time.Now()

	h, gerr := g.handle(database)
	if gerr != nil {
		return nil, g.fail(database, "list_tables", start, gerr)
	}

	tables := make([]TableInfo, 0)
	gerr = g.catalogQuery(ctx, h, listTablesSQL, []interface{}{h.cfg.Schema}, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				name      string
				tableType string
				engine    sql.NullString
				rowCount  sql.NullInt64
				sizeBytes sql.NullInt64
				comment   sql.NullString
			)
			if err := rows.Scan(&name, &tableType, &engine, &rowCount, &sizeBytes, &comment); err != nil {
				return err
			}
			t := TableInfo{
				Name:          name,
				Type:          "table",
				Engine:        engine.String,
				EstimatedRows: rowCount.Int64,
				SizeBytes:     sizeBytes.Int64,
				Comment:       comment.String,
			}
			if strings.Contains(tableType, "VIEW") {
				t.Type = "view"
			}
			tables = append(tables, t)
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "list_tables", start, gerr)
	}

	g.metrics.RecordQuery(h.name, "list_tables", "ok", time.Since(start))

	g.logger.Info().
		Str("database", h.name).
		Dur("duration", time.Since(start)).
		Int("table_count", len(tables)).
		Msg("ListTables executed")

	return &ListTablesOutput{Database: h.name, Tables: tables}, nil
}
