package treeio

import (
	"strings"
	"testing"

	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *syntax.Tree {
	root := syntax.NewTree("entity").Set("id", "buf").SetLine(1)
	ports := syntax.NewTree("ports")
	port := syntax.NewTree("port").Set("id", "a").Set("io", "in").SetLine(2)
	ports.Add(port)
	root.Add(ports)
	return root
}

func TestWrite_ProducesIndentedAttributeLines(t *testing.T) {
	var sb strings.Builder
	err := Write(&sb, sampleTree(), 2)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	assert.Equal(t, `entity line="1" id="buf"`, lines[0])
	assert.Equal(t, `  ports`, lines[1])
	assert.Equal(t, `    port line="2" id="a" io="in"`, lines[2])
}

func TestReadWrite_RoundTrips(t *testing.T) {
	original := sampleTree()

	var sb strings.Builder
	require.NoError(t, Write(&sb, original, 4))

	got, err := Read(strings.NewReader(sb.String()), 4)
	require.NoError(t, err)
	assert.True(t, original.Equal(got))
}

func TestRead_RejectsIndentJump(t *testing.T) {
	_, err := Read(strings.NewReader("a\n    b\n"), 2)
	assert.Error(t, err)
}

func TestRead_ParsesAttributeWithEmbeddedSpace(t *testing.T) {
	got, err := Read(strings.NewReader(`constantExpression id="two words"`), 2)
	require.NoError(t, err)
	assert.Equal(t, "two words", got.Attrs["id"])
}
