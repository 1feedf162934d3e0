package mysqlmcp

// Field describes one column of a query result: its name and the
// semantic type family inferred from the driver's type metadata.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryOutcome is the result of a successful gateway query. RowCount
// always equals len(Rows) and never exceeds the effective limit that
// was in force; Truncated is true iff the source had at least one more
// row than returned.
type QueryOutcome struct {
	Rows      []map[string]interface{} `json:"rows"`
	Fields    []Field                  `json:"fields"`
	RowCount  int                      `json:"row_count"`
	Truncated bool                     `json:"truncated"`
}

// TableInfo is a single table or view in the ListTables output.
// EstimatedRows and SizeBytes come from catalog statistics and are
// approximations, not exact counts.
type TableInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"` // "table" or "view"
	Engine        string `json:"engine,omitempty"`
	EstimatedRows int64  `json:"estimated_rows"`
	SizeBytes     int64  `json:"size_bytes"`
	Comment       string `json:"comment,omitempty"`
}

// ListTablesOutput is the output of the ListTables tool.
type ListTablesOutput struct {
	Database string      `json:"database"`
	Tables   []TableInfo `json:"tables"`
}

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name       string `json:"name"`
	ColumnType string `json:"column_type"` // full type, e.g. "varchar(255)"
	Type       string `json:"type"`        // semantic family, e.g. "string"
	Nullable   bool   `json:"nullable"`
	Key        string `json:"key,omitempty"` // PRI, UNI, MUL
	Default    string `json:"default,omitempty"`
	Extra      string `json:"extra,omitempty"` // e.g. auto_increment
}

// IndexInfo describes a single index.
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// ForeignKeyInfo describes a single foreign-key column edge.
type ForeignKeyInfo struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnUpdate         string `json:"on_update"`
	OnDelete         string `json:"on_delete"`
}

// DescribeTableOutput is the output of the DescribeTable tool.
type DescribeTableOutput struct {
	Database    string           `json:"database"`
	Table       string           `json:"table"`
	Columns     []ColumnInfo     `json:"columns"`
	Indexes     []IndexInfo      `json:"indexes"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys"`
}

// PreviewOutput is the output of the PreviewTable tool. Text values
// longer than the display threshold are cut short; the affected column
// names are listed in TruncatedFields.
type PreviewOutput struct {
	Database        string                   `json:"database"`
	Table           string                   `json:"table"`
	Fields          []Field                  `json:"fields"`
	Rows            []map[string]interface{} `json:"rows"`
	RowCount        int                      `json:"row_count"`
	Truncated       bool                     `json:"truncated"`
	TruncatedFields []string                 `json:"truncated_fields,omitempty"`
}

// Relation is one foreign-key edge with its inferred cardinality.
type Relation struct {
	Constraint       string `json:"constraint"`
	SourceTable      string `json:"source_table"`
	SourceColumn     string `json:"source_column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	Type             string `json:"type"` // "one-to-one" or "one-to-many"
	OnUpdate         string `json:"on_update"`
	OnDelete         string `json:"on_delete"`
}

// ListRelationsOutput is the output of the ListRelations tool.
type ListRelationsOutput struct {
	Database  string     `json:"database"`
	Relations []Relation `json:"relations"`
}

// TableStat names a table together with one of its size metrics.
type TableStat struct {
	Name          string `json:"name"`
	EstimatedRows int64  `json:"estimated_rows"`
	SizeBytes     int64  `json:"size_bytes"`
}

// DatabaseStatsOutput is the output of the DatabaseStats tool. The
// largest-table lists hold at most ten entries each, sorted
// non-increasing by their respective metric.
type DatabaseStatsOutput struct {
	Database      string      `json:"database"`
	TableCount    int         `json:"table_count"`
	ViewCount     int         `json:"view_count"`
	TotalRows     int64       `json:"total_rows"`
	TotalBytes    int64       `json:"total_bytes"`
	LargestByRows []TableStat `json:"largest_by_rows"`
	LargestBySize []TableStat `json:"largest_by_size"`
}
