package mysqlmcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestListTables_Basic(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	mock.ExpectQuery(listTablesSQL).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_TYPE", "ENGINE", "TABLE_ROWS", "SIZE", "TABLE_COMMENT"}).
			AddRow("orders", "BASE TABLE", "InnoDB", int64(1500), int64(65536), "customer orders").
			AddRow("users", "BASE TABLE", "InnoDB", int64(42), int64(16384), ""))

	out, err := g.ListTables(context.Background(), "db1")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if out.Database != "db1" {
		t.Fatalf("expected database db1, got %q", out.Database)
	}
	if len(out.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(out.Tables))
	}

	orders := out.Tables[0]
	if orders.Name != "orders" || orders.Type != "table" || orders.Engine != "InnoDB" {
		t.Fatalf("unexpected table: %+v", orders)
	}
	if orders.EstimatedRows != 1500 || orders.SizeBytes != 65536 || orders.Comment != "customer orders" {
		t.Fatalf("unexpected table stats: %+v", orders)
	}
}

func TestListTables_ClassifiesViews(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	mock.ExpectQuery(listTablesSQL).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_TYPE", "ENGINE", "TABLE_ROWS", "SIZE", "TABLE_COMMENT"}).
			AddRow("active_users", "VIEW", nil, nil, int64(0), "").
			AddRow("users", "BASE TABLE", "InnoDB", int64(10), int64(16384), ""))

	out, err := g.ListTables(context.Background(), "db1")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}

	view := out.Tables[0]
	if view.Name != "active_users" || view.Type != "view" {
		t.Fatalf("expected view classification, got %+v", view)
	}
	// NULL engine and row count collapse to zero values.
	if view.Engine != "" || view.EstimatedRows != 0 {
		t.Fatalf("expected empty engine and zero rows for view, got %+v", view)
	}
	if out.Tables[1].Type != "table" {
		t.Fatalf("expected table classification, got %+v", out.Tables[1])
	}
}

func TestListTables_EmptySchema(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	mock.ExpectQuery(listTablesSQL).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_TYPE", "ENGINE", "TABLE_ROWS", "SIZE", "TABLE_COMMENT"}))

	out, err := g.ListTables(context.Background(), "db1")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(out.Tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(out.Tables))
	}
}

func TestListTables_UnknownDatabase(t *testing.T) {
	t.Parallel()
	g, _ := newMockGateway(t, testConfig())

	_, err := g.ListTables(context.Background(), "nope")
	gerr, ok := AsGatewayError(err)
	if !ok || gerr.Kind != KindConnectionFailed {
		t.Fatalf("expected connection_failed, got %v", err)
	}
	if !strings.Contains(gerr.Message, "unknown database") {
		t.Fatalf("unexpected message: %q", gerr.Message)
	}
}

func TestListTables_CatalogFailure(t *testing.T) {
	t.Parallel()
	g, mock := newMockGateway(t, testConfig())

	mock.ExpectQuery(listTablesSQL).
		WithArgs("shop").
		WillReturnError(errors.New("Unknown database 'shop'"))

	_, err := g.ListTables(context.Background(), "db1")
	gerr, ok := AsGatewayError(err)
	if !ok || gerr.Kind != KindExecutionFailed {
		t.Fatalf("expected execution_failed, got %v", err)
	}
}
