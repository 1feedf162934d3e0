package mysqlmcp

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
)

func previewCatalog(mock sqlmock.Sqlmock, table string, columns ...string) {
	rows := sqlmock.NewRows([]string{"COLUMN_NAME"})
	for _, c := range columns {
		rows.AddRow(c)
	}
	mock.ExpectQuery(previewColumnsSQL).WithArgs("shop", table).WillReturnRows(rows)
}

func TestPreviewTable_AllColumns(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	previewCatalog(mock, "users", "id", "name")
	mock.ExpectQuery("SELECT `id`, `name` FROM `shop`.`users` LIMIT 11").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
			sqlmock.NewColumn("name").OfType("VARCHAR", ""),
		).
			AddRow(int64(1), []byte("alice")).
			AddRow(int64(2), []byte("bob")))

	out, err := g.PreviewTable(context.Background(), "db1", "users", nil, 0)
	if err != nil {
		t.Fatalf("PreviewTable failed: %v", err)
	}
	if out.Database != "db1" || out.Table != "users" {
		t.Fatalf("unexpected output header: %+v", out)
	}
	if out.RowCount != 2 || out.Truncated {
		t.Fatalf("expected 2 untruncated rows, got %d truncated=%v", out.RowCount, out.Truncated)
	}
	if len(out.Fields) != 2 || out.Fields[0].Type != "integer" || out.Fields[1].Type != "string" {
		t.Fatalf("unexpected fields: %+v", out.Fields)
	}
	if out.Rows[0]["name"] != "alice" {
		t.Fatalf("unexpected row value: %v", out.Rows[0]["name"])
	}
	if out.TruncatedFields != nil {
		t.Fatalf("expected no truncated fields, got %v", out.TruncatedFields)
	}
}

func TestPreviewTable_ProjectionKeepsCatalogSpelling(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	previewCatalog(mock, "users", "id", "name")
	// The caller asked for "NAME"; the generated SQL uses the catalog's
	// spelling.
	mock.ExpectQuery("SELECT `name` FROM `shop`.`users` LIMIT 11").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("alice"))

	out, err := g.PreviewTable(context.Background(), "db1", "users", []string{"NAME"}, 0)
	if err != nil {
		t.Fatalf("PreviewTable failed: %v", err)
	}
	if len(out.Fields) != 1 || out.Fields[0].Name != "name" {
		t.Fatalf("unexpected fields: %+v", out.Fields)
	}
}

func TestPreviewTable_UnknownColumns(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	previewCatalog(mock, "users", "id", "name")

	_, err := g.PreviewTable(context.Background(), "db1", "users", []string{"id", "ghost", "phantom"}, 0)
	gerr, ok := AsGatewayError(err)
	if !ok || gerr.Kind != KindExecutionFailed {
		t.Fatalf("expected execution_failed, got %v", err)
	}
	if gerr.Message != "unknown columns in table users: ghost, phantom" {
		t.Fatalf("unexpected message: %q", gerr.Message)
	}
}

func TestPreviewTable_MissingTable(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	previewCatalog(mock, "ghost")

	_, err := g.PreviewTable(context.Background(), "db1", "ghost", nil, 0)
	gerr, ok := AsGatewayError(err)
	if !ok || gerr.Kind != KindExecutionFailed {
		t.Fatalf("expected execution_failed, got %v", err)
	}
	if gerr.Message != "table ghost does not exist in database db1" {
		t.Fatalf("unexpected message: %q", gerr.Message)
	}
}

func TestPreviewTable_ShortensLongText(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	long := strings.Repeat("x", 300)
	previewCatalog(mock, "posts", "id", "body")
	mock.ExpectQuery("SELECT `id`, `body` FROM `shop`.`posts` LIMIT 11").
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}).AddRow(int64(1), long))

	out, err := g.PreviewTable(context.Background(), "db1", "posts", nil, 0)
	if err != nil {
		t.Fatalf("PreviewTable failed: %v", err)
	}
	if len(out.TruncatedFields) != 1 || out.TruncatedFields[0] != "body" {
		t.Fatalf("expected [body], got %v", out.TruncatedFields)
	}
	body := out.Rows[0]["body"].(string)
	if utf8.RuneCountInString(body) != 203 || !strings.HasSuffix(body, "...") {
		t.Fatalf("unexpected shortened value: %q", body)
	}
}

func TestPreviewTable_LimitAboveCapFallsBack(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	previewCatalog(mock, "users", "id")
	mock.ExpectQuery("SELECT `id` FROM `shop`.`users` LIMIT 11").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := g.PreviewTable(context.Background(), "db1", "users", nil, 500); err != nil {
		t.Fatalf("PreviewTable failed: %v", err)
	}
}

func TestProjectColumns(t *testing.T) {
	t.Parallel()
	actual := []string{"id", "Name", "email"}

	selected, unknown := projectColumns(actual, nil)
	if len(selected) != 3 || unknown != nil {
		t.Fatalf("empty request must select everything, got %v %v", selected, unknown)
	}

	selected, unknown = projectColumns(actual, []string{"EMAIL", "name"})
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown columns: %v", unknown)
	}
	// Caller order, catalog spelling.
	if len(selected) != 2 || selected[0] != "email" || selected[1] != "Name" {
		t.Fatalf("unexpected selection: %v", selected)
	}

	_, unknown = projectColumns(actual, []string{"id", "ghost"})
	if len(unknown) != 1 || unknown[0] != "ghost" {
		t.Fatalf("expected [ghost], got %v", unknown)
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	if got := quoteIdent("users"); got != "`users`" {
		t.Fatalf("unexpected quoting: %q", got)
	}
	if got := quoteIdent("od`d"); got != "`od``d`" {
		t.Fatalf("embedded backtick must double, got %q", got)
	}
}
