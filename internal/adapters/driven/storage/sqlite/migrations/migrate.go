package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

const upSuffix = ".up.sql"

// Step is one numbered up migration.
type Step struct {
	Version int
	Name    string
}

// Steps lists the up migrations in fsys ordered by version. Files whose
// name does not start with "<n>_" are ignored.
func Steps(fsys fs.FS) ([]Step, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var steps []Step
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), upSuffix) {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(e.Name(), "%d_", &v); err != nil {
			continue
		}
		steps = append(steps, Step{Version: v, Name: e.Name()})
	}
	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return steps, nil
}

// Apply brings db up to the newest version in FS. Each step runs in its
// own transaction together with its schema_migrations row.
func Apply(ctx context.Context, db *sql.DB) error {
	return apply(ctx, db, FS)
}

func apply(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").
		Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	steps, err := Steps(fsys)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, st := range steps {
		if st.Version <= current {
			continue
		}
		if err := run(ctx, db, fsys, st); err != nil {
			return fmt.Errorf("migration %s: %w", st.Name, err)
		}
	}
	return nil
}

func run(ctx context.Context, db *sql.DB, fsys fs.FS, st Step) error {
	body, err := fs.ReadFile(fsys, st.Name)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", st.Version); err != nil {
		return err
	}
	return tx.Commit()
}
