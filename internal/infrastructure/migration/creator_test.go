package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKLee98/naver-sub003/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add alerts table", "add_alerts_table"},
		{"Add-Alerts-Table", "add_alerts_table"},
		{"ADD__ALERTS__TABLE", "add_alerts_table"},
		{"Add Rules 123", "add_rules_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")
	now := time.Date(2026, 4, 2, 13, 4, 5, 0, time.UTC)

	mf, err := CreateMigration(dir, "add sync cursor", "Track webhook cursor per shop", now)
	require.NoError(t, err)

	assert.Equal(t, "20260402130405", mf.Version)
	assert.Equal(t, "20260402130405_add_sync_cursor.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, "20260402130405_add_sync_cursor.down.sql", filepath.Base(mf.DownPath))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add_sync_cursor")
	assert.Contains(t, string(up), "Track webhook cursor per shop")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := CreateMigration(dir, "add sync cursor", "", now)
		assert.Error(t, err)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := CreateMigration(dir, "!!!", "", now)
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_alerts.up.sql":   {Data: []byte("--")},
		"000002_add_alerts.down.sql": {Data: []byte("--")},
		"000001_init.up.sql":         {Data: []byte("--")},
		"000001_init.down.sql":       {Data: []byte("--")},
		"README.md":                  {Data: []byte("docs")},
		"subdir.up.sql/placeholder":  {Data: []byte("--")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_alerts"}, names)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		_, err := migrations.FS.Open(name + downSuffix)
		assert.NoError(t, err, "%s has no down migration", name)
		assert.True(t, strings.Contains(name, "_create_"), "unexpected migration %s", name)
	}
}
