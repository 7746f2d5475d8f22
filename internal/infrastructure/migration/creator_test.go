package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"create debts table":     "create_debts_table",
		"Add-Settlement-State":   "add_settlement_state",
		"weird!!chars##here":     "weirdcharshere",
		"trailing separator ":    "trailing_separator",
		"many   spaces--between": "many_spaces_between",
		"v2":                     "v2",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Create Debts Table", "initial debt schema")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, "_create_debts_table.up.sql"), mf.UpPath)
	assert.True(t, strings.HasSuffix(mf.DownPath, "_create_debts_table.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: Create Debts Table")
	assert.Contains(t, string(up), "initial debt schema")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
	assert.Contains(t, string(down), "Rollback for initial debt schema")
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty, not an error", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, migrations)
	})

	t.Run("one entry per pair, down files ignored", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20260101000000_create_debts.up.sql",
			"20260101000000_create_debts.down.sql",
			"20260102000000_create_payments.up.sql",
			"20260102000000_create_payments.down.sql",
			"notes.txt",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

		migrations, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20260101000000_create_debts",
			"20260102000000_create_payments",
		}, migrations)
	})
}
