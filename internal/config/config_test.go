package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Indent)
	assert.Equal(t, 4, cfg.IndentOr(4))
}

func TestLoad_EmptyPathReturnsZeroValue(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fallback.db", cfg.CachePathOr("fallback.db"))
}

func TestLoad_DecodesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vhdlfront.toml")
	contents := `
indent = 4
cache_path = "build/cache.db"

[reserved_words]
foo = "IDENTIFIER"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Indent)
	assert.Equal(t, "build/cache.db", cfg.CachePath)
	assert.Equal(t, "IDENTIFIER", cfg.ReservedWords["foo"])
	assert.Equal(t, 4, cfg.IndentOr(2))
}
