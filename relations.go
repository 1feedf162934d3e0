package mysqlmcp

import (
	"context"
	"database/sql"
	"time"
)

const relationEdgesSQL = `
SELECT
    k.CONSTRAINT_NAME,
    k.TABLE_NAME,
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
  AND k.REFERENCED_TABLE_NAME IS NOT NULL`

const relationEdgesTableFilter = `
  AND (k.TABLE_NAME = ? OR k.REFERENCED_TABLE_NAME = ?)`

const relationEdgesOrder = `
ORDER BY k.TABLE_NAME, k.CONSTRAINT_NAME, k.ORDINAL_POSITION`

const uniqueColumnsSQL = `
SELECT INDEX_NAME, COLUMN_NAME
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME = ?
  AND NON_UNIQUE = 0
ORDER BY INDEX_NAME, SEQ_IN_INDEX`

// ListRelations maps the foreign-key graph of the schema. table narrows
// the result to edges touching that table; empty covers the whole
// schema. An edge is one-to-one when its source column alone is covered
// by a unique index, one-to-many otherwise. Classification degrades to
// one-to-many rather than failing the call.
func (g *Gateway) ListRelations(ctx context.Context, database, table string) (*ListRelationsOutput, error) {
	start := time.Now()

	h, gerr := g.handle(database)
	if gerr != nil {
		return nil, g.fail(database, "list_relations", start, gerr)
	}

	query := relationEdgesSQL
	args := []interface{}{h.cfg.Schema}
	if table != "" {
		query += relationEdgesTableFilter
		args = append(args, table, table)
	}
	query += relationEdgesOrder

	relations := make([]Relation, 0)
	gerr = g.catalogQuery(ctx, h, query, args, func(rows *sql.Rows) error {
		for rows.Next() {
			var rel Relation
			if err := rows.Scan(&rel.Constraint, &rel.SourceTable, &rel.SourceColumn,
				&rel.ReferencedTable, &rel.ReferencedColumn, &rel.OnUpdate, &rel.OnDelete); err != nil {
				return err
			}
			rel.Type = "one-to-many"
			relations = append(relations, rel)
		}
		return nil
	})
	if gerr != nil {
		return nil, g.fail(h.name, "list_relations", start, gerr)
	}

	// Upgrade edges whose source column alone carries a unique index.
	sources := make(map[string]bool)
	for _, rel := range relations {
		sources[rel.SourceTable] = true
	}
	for src := range sources {
		unique, err := g.uniqueSingleColumns(ctx, h, src)
		if err != nil {
			g.logger.Warn().Err(err).Str("database", h.name).Str("table", src).Msg("relation classification degraded")
			continue
		}
		for i := range relations {
			if relations[i].SourceTable == src && unique[relations[i].SourceColumn] {
				relations[i].Type = "one-to-one"
			}
		}
	}

	g.metrics.RecordQuery(h.name, "list_relations", "ok", time.Since(start))

	g.logger.Info().
		Str("database", h.name).
		Dur("duration", time.Since(start)).
		Int("relation_count", len(relations)).
		Msg("ListRelations executed")

	return &ListRelationsOutput{Database: h.name, Relations: relations}, nil
}

// uniqueSingleColumns returns the set of columns on table that are the
// sole column of some unique index.
func (g *Gateway) uniqueSingleColumns(ctx context.Context, h *dbHandle, table string) (map[string]bool, error) {
	indexCols := make(map[string][]string)
	gerr := g.catalogQuery(ctx, h, uniqueColumnsSQL, []interface{}{h.cfg.Schema, table}, func(rows *sql.Rows) error {
		for rows.Next() {
			var index, column string
			if err := rows.Scan(&index, &column); err != nil {
				return err
			}
			indexCols[index] = append(indexCols[index], column)
		}
		return nil
	})
	if gerr != nil {
		return nil, gerr
	}
	unique := make(map[string]bool)
	for _, cols := range indexCols {
		if len(cols) == 1 {
			unique[cols[0]] = true
		}
	}
	return unique, nil
}
