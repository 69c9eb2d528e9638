package persist

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrate applies every migrations/*.sql file not yet recorded in
// schema_migrations, in filename order, each inside its own transaction. If
// schema_migrations records a migration that is not embedded in this build,
// it returns an error before applying anything.
// modernc.org/sqlite carries no golang-migrate database.Driver of its own
// (the pack's only golang-migrate usage targets postgres via pgx), so rather
// than guess at an unverified Driver implementation this runs the same
// version-tracked-apply idiom the pack's internal/infra.MigrationManager
// already uses, just driven off embedded .sql files instead of Go closures.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	)`); err != nil {
		return fmt.Errorf("persist: create schema_migrations: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query(`SELECT filename FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("persist: read schema_migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("persist: scan schema_migrations: %w", err)
		}
		applied[name] = true
	}
	rows.Close()

	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("persist: read embedded migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}
	for name := range applied {
		if !known[name] {
			return fmt.Errorf("persist: database records migration %s, which this build does not embed; it was written by a newer version", name)
		}
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		sqlBytes, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("persist: read migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("persist: begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("persist: apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (filename) VALUES (?)`, name); err != nil {
			tx.Rollback()
			return fmt.Errorf("persist: record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("persist: commit migration %s: %w", name, err)
		}
	}
	return nil
}
