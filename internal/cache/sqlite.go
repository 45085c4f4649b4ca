package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"mortality/internal/config"
	"mortality/internal/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteWriter replaces the contents of a SQLite database with the cleaned
// table and its lookup tables.
type SQLiteWriter struct {
	Path string
}

func (w *SQLiteWriter) Format() string { return config.CacheSQLite }

func (w *SQLiteWriter) Write(ctx context.Context, cs *engine.ColumnStore) error {
	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	version, err := schemaVersion(w.Path)
	if err != nil {
		return err
	}
	log.Debug().Str("path", w.Path).Uint("schema_version", version).Msg("Cache schema ready")

	db, err := sql.Open("sqlite", w.Path)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"records", "cause_names", "county_names"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (
		year, state, state_code, county, county_code, age_group, age_group_code,
		cause, cause_code, deaths, population, crude_rate, crude_rate_standard_error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < cs.Len(); i++ {
		r := cs.Record(i)
		if _, err := stmt.ExecContext(ctx,
			r.Year, r.State, r.StateCode, r.County, r.CountyCode, r.AgeGroup, r.AgeGroupCode,
			r.Cause, r.CauseCode, r.Deaths, r.Population, nullRate(r.CrudeRate), nullRate(r.CrudeRateSE),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	causes := cs.CauseNames()
	for _, code := range causes.Codes() {
		name, _ := causes.Name(code)
		if _, err := tx.ExecContext(ctx, "INSERT INTO cause_names (code, name) VALUES (?, ?)", code, name); err != nil {
			return fmt.Errorf("insert cause %s: %w", code, err)
		}
	}
	counties := cs.CountyNames()
	for _, code := range counties.Codes() {
		name, _ := counties.Name(code)
		if _, err := tx.ExecContext(ctx, "INSERT INTO county_names (code, name) VALUES (?, ?)", code, name); err != nil {
			return fmt.Errorf("insert county %d: %w", code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// schemaVersion migrates the cache database at path to the newest embedded
// schema and returns its version.
func schemaVersion(path string) (uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("cache schema source: %w", err)
	}
	// migrate closes this handle with its driver.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("open %s for migration: %w", path, err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return 0, fmt.Errorf("cache schema driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return 0, fmt.Errorf("cache schema: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate cache schema in %s: %w", path, err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read cache schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("cache schema version %d in %s is dirty", version, path)
	}
	return version, nil
}

func nullRate(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}
