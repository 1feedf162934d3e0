package mysqlmcp

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"
)

const databaseStatsSQL = `
SELECT
    TABLE_NAME,
    TABLE_TYPE,
    TABLE_ROWS,
    COALESCE(DATA_LENGTH, 0) + COALESCE(INDEX_LENGTH, 0)
FROM information_schema.TABLES
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
ORDER BY TABLE_NAME`

const statsTopN = 10

// DatabaseStats aggregates table counts, row estimates, and on-disk
// size for one logical database, including the largest tables by
// estimated rows and by bytes. Figures come from the optimizer's
// catalog estimates, not full scans.
func (g *Gateway) DatabaseStats(ctx context.Context, database string) (*DatabaseStatsOutput, error) {
	start := time.Now()

	h, gerr := g.handle(database)
	if gerr != nil {
		return nil, g.fail(database, "database_stats", start, gerr)
	}

	out := &DatabaseStatsOutput{Database: h.name}
	tables := make([]TableStat, 0)
	gerr = g.catalogQuery(ctx, h, databaseStatsSQL, []interface{}{h.cfg.Schema}, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				name      string
				tableType string
				rowCount  sql.NullInt64
				sizeBytes sql.NullInt64
			)
			if err := rows.Scan(&name, &tableType, &rowCount, &sizeBytes); err != nil {
				return err
			}
			if strings.Contains(tableType, "VIEW") {
				out.ViewCount++
				continue
			}
			out.TableCount++
			out.TotalRows += rowCount.Int64
			out.TotalBytes += sizeBytes.Int64
			tables = append(tables, TableStat{
				Name:          name,
				EstimatedRows: rowCount.Int64,
				SizeBytes:     sizeBytes.Int64,
			})
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "database_stats", start, gerr)
	}

	out.LargestByRows = topTables(tables, func(a, b TableStat) bool {
		return a.EstimatedRows > b.EstimatedRows
	})
	out.LargestBySize = topTables(tables, func(a, b TableStat) bool {
		return a.SizeBytes > b.SizeBytes
	})

	g.metrics.RecordQuery(h.name, "database_stats", "ok", time.Since(start))

	g.logger.Info().
		Str("database", h.name).
		Dur("duration", time.Since(start)).
		Int("table_count", out.TableCount).
		Int("view_count", out.ViewCount).
		Msg("DatabaseStats executed")

	return out, nil
}

// topTables returns up to statsTopN tables in the order given by more,
// leaving the input untouched. Stable sort keeps name order for ties.
func topTables(tables []TableStat, more func(a, b TableStat) bool) []TableStat {
	sorted := make([]TableStat, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool { return more(sorted[i], sorted[j]) })
	if len(sorted) > statsTopN {
		sorted = sorted[:statsTopN]
	}
	return sorted
}
