package mysqlmcp

import (
	"context"
	"database/sql"
	"time"

	"github.com/cosmohaven/mysql-mcp/internal/fieldtype"
)

// SQL queries for DescribeTable

const describeColumnsSQL = `
SELECT
    COLUMN_NAME,
    COLUMN_TYPE,
    DATA_TYPE,
    IS_NULLABLE,
    COLUMN_KEY,
    COLUMN_DEFAULT,
    EXTRA
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

const describeIndexesSQL = `
SELECT
    INDEX_NAME,
    COLUMN_NAME,
    NON_UNIQUE
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME = ?
ORDER BY INDEX_NAME, SEQ_IN_INDEX`

const describeForeignKeysSQL = `
SELECT
    k.CONSTRAINT_NAME,
    k.COLUMN_NAME,
    k.REFERENCED_TABLE_NAME,
    k.REFERENCED_COLUMN_NAME,
    r.UPDATE_RULE,
    r.DELETE_RULE
FROM information_schema.KEY_COLUMN_USAGE k
JOIN information_schema.REFERENTIAL_CONSTRAINTS r
    ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA
    AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME
WHERE k.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND k.TABLE_NAME = ?
  AND k.REFERENCED_TABLE_NAME IS NOT NULL
ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION`

// DescribeTable returns column definitions, indexes, and outgoing
// foreign keys for one table or view. Everything comes from the
// information_schema catalog, so no row data is touched.
func (g *Gateway) DescribeTable(ctx context.Context, database, table string) (*DescribeTableOutput, error) {
	start := time.Now()

	h, gerr := g.handle(database)
	if gerr != nil {
		return nil, g.fail(database, "describe_table", start, gerr)
	}

	out := &DescribeTableOutput{
		Database:    h.name,
		Table:       table,
		Columns:     []ColumnInfo{},
		Indexes:     []IndexInfo{},
		ForeignKeys: []ForeignKeyInfo{},
	}

	// 1. Columns.
	gerr = g.catalogQuery(ctx, h, describeColumnsSQL, []interface{}{h.cfg.Schema, table}, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				col        ColumnInfo
				dataType   string
				isNullable string
				key        sql.NullString
				defaultVal sql.NullString
				extra      sql.NullString
			)
			if err := rows.Scan(&col.Name, &col.ColumnType, &dataType, &isNullable, &key, &defaultVal, &extra); err != nil {
				return err
			}
			col.Type = fieldtype.Semantic(dataType)
			col.Nullable = isNullable == "YES"
			col.Key = key.String
			col.Default = defaultVal.String
			col.Extra = extra.String
			out.Columns = append(out.Columns, col)
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "describe_table", start, gerr)
	}

	// A missing table yields zero catalog rows rather than a server error.
	if len(out.Columns) == 0 {
		return nil, g.fail(h.name, "describe_table", start, newError(g.sanitizer, KindExecutionFailed, h.name,
			"table %s does not exist in database %s", table, h.name))
	}

	// 2. Indexes, grouped by name with columns in key order.
	var indexOrder []string
	indexCols := make(map[string][]string)
	indexUnique := make(map[string]bool)
	gerr = g.catalogQuery(ctx, h, describeIndexesSQL, []interface{}{h.cfg.Schema, table}, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				name      string
				column    string
				nonUnique int
			)
			if err := rows.Scan(&name, &column, &nonUnique); err != nil {
				return err
			}
			if _, ok := indexCols[name]; !ok {
				indexOrder = append(indexOrder, name)
				indexUnique[name] = nonUnique == 0
			}
			indexCols[name] = append(indexCols[name], column)
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "describe_table", start, gerr)
	}
	for _, name := range indexOrder {
		out.Indexes = append(out.Indexes, IndexInfo{
			Name:    name,
			Columns: indexCols[name],
			Unique:  indexUnique[name],
		})
	}

	// 3. Outgoing foreign keys.
	gerr = g.catalogQuery(ctx, h, describeForeignKeysSQL, []interface{}{h.cfg.Schema, table}, func(rows *sql.Rows) error {
		for rows.Next() {
			var fk ForeignKeyInfo
			if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.OnUpdate, &fk.OnDelete); err != nil {
				return err
			}
			out.ForeignKeys = append(out.ForeignKeys, fk)
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "describe_table", start, gerr)
	}

	g.metrics.RecordQuery(h.name, "describe_table", "ok", time.Since(start))

	g.logger.Info().
		Str("database", h.name).
		Str("table", table).
		Dur("duration", time.Since(start)).
		Int("column_count", len(out.Columns)).
		Msg("DescribeTable executed")

	return out, nil
}
