package sqlstore

import (
	"context"
	"database/sql"
)

// SetBeforeWrite installs a hook run inside write transactions once the
// stored revision has been read.
func SetBeforeWrite(b *Backend, fn func(ctx context.Context, tx *sql.Tx, id string) error) {
	b.beforeWrite = fn
}
