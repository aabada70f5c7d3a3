package sqlite

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB returns a migrated in-memory history database private to t.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// cache=shared lets the writer and reader pools see one memory database.
	dsn := "file:" + url.PathEscape(t.Name()) + "?mode=memory&cache=shared&_pragma=busy_timeout(5000)"
	db, err := openPair(dsn, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer))
	return db
}
