package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Open opens (or creates) a SQLite database at the given path and enables
// WAL journal mode. The URI parameter ensures better concurrency for
// read-heavy workloads.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap applies the embedded DDL. Statements are idempotent
// (CREATE ... IF NOT EXISTS), so booting against an existing file is safe.
func Bootstrap(db *sql.DB) error {
	for _, stmt := range ddlStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}
	return nil
}

// ddlStatements returns the CREATE TABLE / INDEX statements from schema.sql.
// It splits on semicolons and trims whitespace.
func ddlStatements() []string {
	parts := strings.Split(schemaSQL, ";")
	var out []string
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
