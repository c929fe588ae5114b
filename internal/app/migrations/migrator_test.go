package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreAnnotated(t *testing.T) {
	files, err := fs.Glob(FS(), "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		body, err := fs.ReadFile(FS(), name)
		require.NoError(t, err)
		text := string(body)
		assert.True(t, strings.HasPrefix(text, "-- +goose Up"), name)
		assert.Contains(t, text, "-- +goose Down", name)
	}
}

func TestInitMigrationDefinesPendingPairIndex(t *testing.T) {
	body, err := fs.ReadFile(FS(), "00001_init.sql")
	require.NoError(t, err)

	assert.Contains(t, string(body), "match_requests_pending_pair_key")
	assert.Contains(t, string(body), "pg_notify('match_request_changes'")
}
