package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Up      string
	Down    string
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, name := range files {
		base := strings.TrimPrefix(name, "migrations/")
		var version, direction string
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			version, direction = strings.TrimSuffix(base, ".up.sql"), "up"
		case strings.HasSuffix(base, ".down.sql"):
			version, direction = strings.TrimSuffix(base, ".down.sql"), "down"
		default:
			continue
		}

		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// MigrateUp applies every migration not yet recorded in schema_migrations.
func MigrateUp(ctx context.Context, db *sqlx.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(50) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	migrations, err := Migrations()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		var exists bool
		if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version); err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to begin migration %s: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}

		log.Info().Str("version", m.Version).Msg("applied migration")
		applied++
	}
	return applied, nil
}

// MigrateDown reverts the most recent applied migration.
func MigrateDown(ctx context.Context, db *sqlx.DB) (string, error) {
	var version string
	err := db.GetContext(ctx, &version, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`)
	if err != nil {
		return "", fmt.Errorf("no applied migration to revert: %w", mapError(err))
	}

	migrations, err := Migrations()
	if err != nil {
		return "", err
	}
	for _, m := range migrations {
		if m.Version != version {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return "", fmt.Errorf("failed to begin revert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.Down); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("failed to revert migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("failed to unrecord migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("failed to commit revert: %w", err)
		}
		log.Info().Str("version", version).Msg("reverted migration")
		return version, nil
	}
	return "", fmt.Errorf("migration %s is not embedded in this binary", version)
}
