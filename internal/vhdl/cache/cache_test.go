package cache

import (
	"path/filepath"
	"testing"

	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_MissReturnsFalse(t *testing.T) {
	c := openTest(t)
	var got syntax.Tree
	ok, err := c.Get(HashSource([]byte("nope")), &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_PutThenGetRoundTrips(t *testing.T) {
	c := openTest(t)
	tree := syntax.NewTree("entity").Set("id", "buf").SetLine(1)
	tree.Add(syntax.NewTree("ports"))

	hash := HashSource([]byte("entity buf is end buf;"))
	require.NoError(t, c.Put(hash, 1234, tree))

	var got syntax.Tree
	ok, err := c.Get(hash, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, tree.Equal(&got))
}

func TestCache_PutOverwritesExistingHash(t *testing.T) {
	c := openTest(t)
	hash := HashSource([]byte("same source"))

	first := syntax.NewTree("entity").Set("id", "a")
	require.NoError(t, c.Put(hash, 1, first))

	second := syntax.NewTree("entity").Set("id", "b")
	require.NoError(t, c.Put(hash, 2, second))

	var got syntax.Tree
	ok, err := c.Get(hash, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", got.Attrs["id"])
}

func TestHashSource_IsDeterministicAndContentSensitive(t *testing.T) {
	a := HashSource([]byte("entity a is end a;"))
	aAgain := HashSource([]byte("entity a is end a;"))
	b := HashSource([]byte("entity b is end b;"))

	assert.Equal(t, a, aAgain)
	assert.NotEqual(t, a, b)
}
