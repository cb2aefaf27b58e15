package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"zerox/internal/infrastructure/mysql"
)

// SetupTestDB opens the test database. It expects a MySQL instance on
// localhost:3306 with a 'zerox_test' schema, overridable via TEST_MYSQL_DSN.
// Tests are skipped when it is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/zerox_test?parseTime=true&loc=UTC"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// SetupTestTables creates the service schema.
func SetupTestTables(t *testing.T, db *sql.DB) {
	t.Helper()

	if err := mysql.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}
}

// CleanupTestDB empties every owned table and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	for _, table := range mysql.Tables() {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// InsertRate seeds one rate card row.
func InsertRate(t *testing.T, db *sql.DB, shopID, printType, paperSize, price string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO RateCards (shopId, printType, paperSize, pricePerPage) VALUES (?, ?, ?, ?)`,
		shopID, printType, paperSize, price,
	)
	if err != nil {
		t.Fatalf("failed to insert rate: %v", err)
	}
}
