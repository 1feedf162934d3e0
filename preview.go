package mysqlmcp

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cosmohaven/mysql-mcp/internal/limits"
)

const previewColumnsSQL = `
SELECT COLUMN_NAME
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

// PreviewTable returns a small sample of rows from one table. columns
// narrows the projection, matched case-insensitively against the
// catalog; empty selects every column. The sample limit defaults to 10
// and caps at 100, and long text values are shortened for display.
func (g *Gateway) PreviewTable(ctx context.Context, database, table string, columns []string, limit int) (*PreviewOutput, error) {
	start := time.Now()

	h, gerr := g.handle(database)
	if gerr != nil {
		return nil, g.fail(database, "preview_table", start, gerr)
	}

	// Resolve the projection against the catalog so caller text never
	// reaches the SELECT list unchecked.
	actual := make([]string, 0)
	gerr = g.catalogQuery(ctx, h, previewColumnsSQL, []interface{}{h.cfg.Schema, table}, func(rows *sql.Rows) error {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			actual = append(actual, name)
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "preview_table", start, gerr)
	}
	if len(actual) == 0 {
		return nil, g.fail(h.name, "preview_table", start, newError(g.sanitizer, KindExecutionFailed, h.name,
			"table %s does not exist in database %s", table, h.name))
	}

	selected, unknown := projectColumns(actual, columns)
	if len(unknown) > 0 {
		return nil, g.fail(h.name, "preview_table", start, newError(g.sanitizer, KindExecutionFailed, h.name,
			"unknown columns in table %s: %s", table, strings.Join(unknown, ", ")))
	}

	quoted := make([]string, len(selected))
	for i, col := range selected {
		quoted[i] = quoteIdent(col)
	}
	from := quoteIdent(table)
	if h.cfg.Schema != "" {
		from = quoteIdent(h.cfg.Schema) + "." + from
	}
	sqlText := "SELECT " + strings.Join(quoted, ", ") + " FROM " + from

	eff := limits.Preview.Effective(limit)
	outcome, err := g.execute(ctx, "preview_table", h.name, sqlText, nil, limits.Query, eff)
	if err != nil {
		return nil, err // execute already recorded the failure
	}

	truncatedFields := shapeRows(outcome.Rows)

	return &PreviewOutput{
		Database:        h.name,
		Table:           table,
		Fields:          outcome.Fields,
		Rows:            outcome.Rows,
		RowCount:        outcome.RowCount,
		Truncated:       outcome.Truncated,
		TruncatedFields: truncatedFields,
	}, nil
}

// projectColumns matches requested column names case-insensitively
// against the catalog's, returning matches in the caller's order with
// the catalog's spelling. Empty requested selects everything.
func projectColumns(actual, requested []string) (selected, unknown []string) {
	if len(requested) == 0 {
		return actual, nil
	}
	for _, want := range requested {
		found := ""
		for _, have := range actual {
			if strings.EqualFold(have, want) {
				found = have
				break
			}
		}
		if found == "" {
			unknown = append(unknown, want)
		} else {
			selected = append(selected, found)
		}
	}
	return selected, unknown
}

// quoteIdent wraps a MySQL identifier in backticks, doubling any
// embedded backtick.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
