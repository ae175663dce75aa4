package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	again, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestRunMigrations_RefusesDirtySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	_, err := RunMigrations(path)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", DSN(path))
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE ` + migrationsTable + ` SET dirty = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = RunMigrations(path)
	assert.ErrorIs(t, err, ErrDirtySchema)

	_, err = NewSQLiteRepository(path)
	assert.ErrorIs(t, err, ErrDirtySchema)
}
