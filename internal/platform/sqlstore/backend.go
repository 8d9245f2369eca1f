package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Backend is a revisioned document store over a SQL database whose schema
// has been migrated by the dialect package.
type Backend struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger

	// beforeWrite runs inside a write transaction after the stored revision
	// has been read. Nil outside tests.
	beforeWrite func(ctx context.Context, tx *sql.Tx, id string) error
}

// Verify interface compliance at compile time
var _ store.Backend = (*Backend)(nil)

// New creates a Backend over db. If logger is nil, slog.Default() is used.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		db:      db,
		dialect: dialect,
		logger: logger.With(
			slog.String("component", "sqlstore"),
			slog.String("dialect", dialect.Name()),
		),
	}
}

// DB returns the underlying connection pool.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Get implements store.Backend.
func (b *Backend) Get(ctx context.Context, id string) (*entity.Record, error) {
	var rev string
	var body []byte
	err := b.db.QueryRowContext(ctx,
		b.dialect.Rebind("SELECT rev, body FROM documents WHERE id = ?"), id).
		Scan(&rev, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, store.NewStoreError(id, "get", "failed to read record", b.dialect.MapError(err))
	}
	return decode(rev, body)
}

// Put implements store.Backend.
func (b *Backend) Put(ctx context.Context, rec *entity.Record) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", store.NewStoreError(rec.ID, "put", "failed to encode record", err)
	}

	var rev string
	err = store.RunInTransaction(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		current, exists, err := b.currentRev(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		if current != rec.Rev {
			return store.NewStoreError(rec.ID, "put", "stale revision "+rec.Rev, store.ErrConflict)
		}
		if err := b.hook(ctx, tx, rec.ID); err != nil {
			return err
		}

		rev = store.NextRev(current)
		if exists {
			return b.guardedExec(ctx, tx, rec.ID, "put",
				"UPDATE documents SET rev = ?, body = ? WHERE id = ? AND rev = ?",
				rev, string(body), rec.ID, current)
		}
		if _, err := tx.ExecContext(ctx,
			b.dialect.Rebind("INSERT INTO documents (id, rev, body) VALUES (?, ?, ?)"),
			rec.ID, rev, string(body)); err != nil {
			return b.writeError(rec.ID, "put", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	b.logger.DebugContext(ctx, "stored record", slog.String("id", rec.ID), slog.String("rev", rev))
	return rev, nil
}

// Remove implements store.Backend. The record's attachments are removed with it.
func (b *Backend) Remove(ctx context.Context, id, rev string) error {
	return store.RunInTransaction(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		current, exists, err := b.currentRev(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		if current != rev {
			return store.NewStoreError(id, "remove", "stale revision "+rev, store.ErrConflict)
		}
		if err := b.hook(ctx, tx, id); err != nil {
			return err
		}

		if err := b.guardedExec(ctx, tx, id, "remove",
			"DELETE FROM documents WHERE id = ? AND rev = ?", id, current); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			b.dialect.Rebind("DELETE FROM attachments WHERE doc_id = ?"), id); err != nil {
			return b.writeError(id, "remove", err)
		}
		return nil
	})
}

// BulkList implements store.Backend. Records are returned sorted by id.
func (b *Backend) BulkList(ctx context.Context) ([]*entity.Record, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT rev, body FROM documents ORDER BY id")
	if err != nil {
		return nil, store.NewStoreError("documents", "list", "failed to query records", b.dialect.MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			b.logger.Error("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var out []*entity.Record
	for rows.Next() {
		var rev string
		var body []byte
		if err := rows.Scan(&rev, &body); err != nil {
			return nil, store.NewStoreError("documents", "list", "failed to scan record", b.dialect.MapError(err))
		}
		rec, err := decode(rev, body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("documents", "list", "failed to iterate records", b.dialect.MapError(err))
	}
	return out, nil
}

// PutAttachment implements store.Backend.
func (b *Backend) PutAttachment(ctx context.Context, id, rev string, att entity.Attachment) (string, error) {
	var next string
	err := store.RunInTransaction(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		current, exists, err := b.currentRev(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		if current != rev {
			return store.NewStoreError(id, "put attachment", "stale revision "+rev, store.ErrConflict)
		}
		if err := b.hook(ctx, tx, id); err != nil {
			return err
		}

		next = store.NextRev(current)
		if err := b.guardedExec(ctx, tx, id, "put attachment",
			"UPDATE documents SET rev = ? WHERE id = ? AND rev = ?", next, id, current); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, b.dialect.Rebind(
			`INSERT INTO attachments (doc_id, name, content_type, data) VALUES (?, ?, ?, ?)
			ON CONFLICT (doc_id, name) DO UPDATE
			SET content_type = excluded.content_type, data = excluded.data`),
			id, att.Name, att.ContentType, att.Data)
		if err != nil {
			return b.writeError(id, "put attachment", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// GetAttachment implements store.Backend.
func (b *Backend) GetAttachment(ctx context.Context, id, name string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx,
		b.dialect.Rebind("SELECT data FROM attachments WHERE doc_id = ? AND name = ?"), id, name).
		Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", store.ErrAttachmentMissing, id, name)
		}
		return nil, store.NewStoreError(id, "get attachment", "failed to read attachment", b.dialect.MapError(err))
	}
	return data, nil
}

// currentRev returns the stored revision of id inside tx.
func (b *Backend) currentRev(ctx context.Context, tx store.DBTX, id string) (string, bool, error) {
	var rev string
	err := tx.QueryRowContext(ctx,
		b.dialect.Rebind("SELECT rev FROM documents WHERE id = ?"), id).
		Scan(&rev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, store.NewStoreError(id, "get", "failed to read revision", b.dialect.MapError(err))
	}
	return rev, true, nil
}

// guardedExec runs a write conditioned on the revision read earlier in the
// transaction. A write that matches no row lost a race with another writer
// and fails with store.ErrConflict.
func (b *Backend) guardedExec(ctx context.Context, tx *sql.Tx, id, op, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, b.dialect.Rebind(query), args...)
	if err != nil {
		return b.writeError(id, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.NewStoreError(id, op, "failed to read affected rows", b.dialect.MapError(err))
	}
	if n == 0 {
		return store.NewStoreError(id, op, "revision changed concurrently", store.ErrConflict)
	}
	return nil
}

func (b *Backend) hook(ctx context.Context, tx *sql.Tx, id string) error {
	if b.beforeWrite == nil {
		return nil
	}
	return b.beforeWrite(ctx, tx, id)
}

// writeError maps a failed write. A concurrent insert of the same id surfaces
// as a conflict, like any other lost race on the revision token.
func (b *Backend) writeError(id, op string, err error) error {
	mapped := b.dialect.MapError(err)
	if errors.Is(mapped, store.ErrDuplicate) {
		return store.NewStoreError(id, op, "concurrent write", store.ErrConflict)
	}
	return store.NewStoreError(id, op, "write failed", mapped)
}

func decode(rev string, body []byte) (*entity.Record, error) {
	var rec entity.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, store.NewStoreError("documents", "decode", "malformed record body", err)
	}
	rec.Rev = rev
	return &rec, nil
}
