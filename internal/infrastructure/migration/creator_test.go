package migration

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Add Shipments Table")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	assert.True(t, strings.HasSuffix(mf.UpPath, "_add_shipments_table.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "_add_shipments_table.down.sql"))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: Add Shipments Table")

	_, err = os.Stat(mf.DownPath)
	assert.NoError(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Add Shipments Table", "add_shipments_table"},
		{"add-shipment-items", "add_shipment_items"},
		{"fix__double  spaces", "fix_double_spaces"},
		{"trailing_", "trailing"},
		{"Special!@#Chars", "specialchars"},
		{"v2 schema", "v2_schema"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeName(tt.input), "input: %s", tt.input)
	}
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()

	// Empty directory
	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Empty(t, migrations)

	// Missing directory is not an error
	migrations, err = ListMigrations(dir + "/missing")
	require.NoError(t, err)
	assert.Empty(t, migrations)

	_, err = CreateMigration(dir, "first")
	require.NoError(t, err)

	migrations, err = ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.True(t, strings.HasSuffix(migrations[0], "_first"))
}
