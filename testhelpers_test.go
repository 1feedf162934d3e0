package mysqlmcp

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
)

// testLogger returns a logger that discards everything.
func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// testConfig returns a minimal valid Config with one logical database.
func testConfig() Config {
	return Config{
		Databases: []DatabaseConfig{{
			Name:   "db1",
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "reader",
			Schema: "shop",
		}},
	}
}

// newMockGateway builds a gateway whose pool is backed by sqlmock, so
// pipeline behavior can be driven without a MySQL server. Queries are
// matched by whitespace-normalized equality, which lets tests assert
// the exact SQL the gateway sends.
func newMockGateway(t *testing.T, config Config) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	g, err := New(context.Background(), config, testLogger())
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	// New opens the pool lazily, so nothing has touched it yet; swap in
	// the mock.
	_ = g.handles[0].db.Close()
	g.handles[0].db = db

	t.Cleanup(func() {
		mock.ExpectClose()
		g.Close()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
	})
	return g, mock
}
