package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres(t *testing.T) {
	stmts, err := Postgres()
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS executions")
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS steps")
}

func TestClickHouse(t *testing.T) {
	stmts, err := ClickHouse()
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.True(t, strings.Contains(stmts[0], "ReplacingMergeTree(updated_at)"))
	// the native protocol accepts a single statement per Exec
	for _, s := range stmts {
		assert.NotContains(t, strings.TrimSpace(s), ";")
	}
}
