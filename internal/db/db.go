package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to the database named by dsn. postgres:// and postgresql://
// URLs go through the pgx stdlib driver; any other value is treated as a
// SQLite path (use ":memory:" for a throwaway database).
//
// All queries in this codebase are written with ? placeholders and passed
// through sqlx.Rebind, so the same SQL runs on both drivers.
func Open(dsn string) (*sqlx.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database (%s): %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite allows a single writer; a single connection also keeps
		// ":memory:" databases alive for the whole process.
		conn.SetMaxOpenConns(1)
	}

	return conn, nil
}
