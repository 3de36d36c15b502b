package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/database/migrations"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_tasks.sql"}, names)
}

func TestMigrate_RunsGooseFromEmbeddedRoot(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, d *sql.DB, dir string) error {
		gotDir = dir
		assert.Same(t, db, d)
		return nil
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}

func TestMigrate_WrapsError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	boom := errors.New("boom")
	gooseUp = func(context.Context, *sql.DB, string) error { return boom }

	err = Migrate(context.Background(), db)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "apply migrations")
}
