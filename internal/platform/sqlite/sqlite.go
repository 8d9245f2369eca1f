// Package sqlite provides the offline document replica on a local SQLite
// file, using the mattn/go-sqlite3 driver and embedded goose migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/phrazzld/scry-decks/internal/platform/sqlstore"
	"github.com/phrazzld/scry-decks/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect is the sqlstore dialect for SQLite.
type Dialect struct{}

// Verify interface compliance at compile time
var _ sqlstore.Dialect = Dialect{}

// Name implements sqlstore.Dialect.
func (Dialect) Name() string { return "sqlite3" }

// Rebind implements sqlstore.Dialect.
func (Dialect) Rebind(query string) string { return sqlstore.QuestionRebind(query) }

// MapError implements sqlstore.Dialect.
func (Dialect) MapError(err error) error { return MapError(err) }

// Open opens or creates the database file at path with WAL journaling and a
// busy timeout. SQLite allows one writer, so the pool holds one connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+"_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewBackend returns a document backend over a migrated database.
func NewBackend(db *sql.DB, logger *slog.Logger) *sqlstore.Backend {
	return sqlstore.New(db, Dialect{}, logger)
}

// Migrate runs a migration command with the embedded schema.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	return sqlstore.Migrate(ctx, db, goose.DialectSQLite3, fsys, command, logger)
}

// MapError maps a SQLite driver error to a store error. Errors without a
// specific mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: constraint violation: %v", store.ErrInvalidEntity, err)
		}
	}
	return err
}
