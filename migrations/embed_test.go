package migrations_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/migrations"
)

func TestFS_MigrationsHaveGooseDirectives(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)

	for _, e := range entries {
		content, err := migrations.FS.ReadFile(e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "-- +goose Up", e.Name())
		assert.Contains(t, string(content), "-- +goose Down", e.Name())
	}
}

func TestFS_CreatesCoreTables(t *testing.T) {
	var all strings.Builder
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	for _, e := range entries {
		content, err := migrations.FS.ReadFile(e.Name())
		require.NoError(t, err)
		all.Write(content)
	}

	for _, table := range []string{
		"projects", "stages", "stage_dependencies", "stage_transitions", "notifications",
		"warehouse_items", "warehouse_comparisons", "warehouse_comparison_items",
	} {
		assert.Contains(t, all.String(), "CREATE TABLE "+table+" (", table)
	}
}
