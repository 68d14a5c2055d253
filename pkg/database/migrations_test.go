package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitSchema_Idempotent(t *testing.T) {
	logger := zap.NewNop()
	path := filepath.Join(t.TempDir(), "bureau.db")

	db, err := New(Config{Path: path}, logger)
	require.NoError(t, err)
	require.NoError(t, InitSchema(db, logger))
	require.NoError(t, InitSchema(db, logger))
	require.NoError(t, db.Close())

	// a second connection re-runs the migrator and finds nothing to apply
	db, err = New(Config{Path: path}, logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, InitSchema(db, logger))

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	for _, table := range []string{"contracts", "cards", "stage_executors", "payments", "rates", "history", "folder_jobs"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestLoadMigrations_Sorted(t *testing.T) {
	migrations, err := loadMigrations(embeddedMigrations)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, 1, migrations[0].Version)
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}
