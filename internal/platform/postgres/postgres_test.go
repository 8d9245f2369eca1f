package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/postgres"
	"github.com/phrazzld/scry-decks/internal/platform/sqlstore"
	"github.com/phrazzld/scry-decks/internal/store"
	"github.com/phrazzld/scry-decks/internal/store/storetest"
)

// testDatabaseURLEnv names the variable holding a disposable database URL.
const testDatabaseURLEnv = "SCRY_TEST_DATABASE_URL"

func TestBackendContract(t *testing.T) {
	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set, skipping PostgreSQL integration test", testDatabaseURLEnv)
	}
	ctx := context.Background()

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, postgres.Migrate(ctx, db, sqlstore.MigrateUp, logger.Discard()))

	storetest.Run(t, func(t *testing.T) store.Backend {
		_, err := db.ExecContext(ctx, "TRUNCATE attachments, documents")
		require.NoError(t, err)
		return postgres.NewBackend(db, logger.Discard())
	})
}
