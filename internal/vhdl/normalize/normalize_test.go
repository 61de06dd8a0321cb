package normalize

import (
	"testing"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/lex"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	bag := diag.NewBag()
	toks := lex.New("t.vhd", src, bag).Lex()
	tree := syntax.New("t.vhd", toks, bag).ParseDesignFile()
	assert.False(t, bag.HasErrors(), "unexpected parse errors: %v", bag.Lines())
	return tree
}

const genericSrc = `
entity delay is
  generic (n: integer := 4);
  port (a: in bit_vector(n downto 0); b: out bit);
end delay;

architecture rtl of delay is
  signal counter: bit_vector(n downto 0);
begin
end rtl;
`

func TestNormalize_InlinesGenericIntoPortsAndArchitecture(t *testing.T) {
	normalized := Normalize(parse(t, genericSrc))

	// port constraint: the objectExpression n is gone, replaced by a clone
	// of the parameter's value.
	port := normalized.FirstChildTagged("entity").
		FirstChildTagged("ports").
		FirstChildTagged("port")
	rng := port.FirstChildTagged("type").FirstChildTagged("range")
	require.NotNil(t, rng)
	assert.Equal(t, "constantExpression", rng.Children[0].Tag)
	assert.Equal(t, "4", rng.Children[0].Attrs["id"])

	// architecture signal constraint gets the same substitution.
	sig := normalized.FirstChildTagged("architecture").
		FirstChildTagged("declarations").
		FirstChildTagged("signalDeclaration")
	require.NotNil(t, sig)
	archRng := sig.FirstChildTagged("type").FirstChildTagged("range")
	require.NotNil(t, archRng)
	assert.Equal(t, "constantExpression", archRng.Children[0].Tag)
	assert.Equal(t, "4", archRng.Children[0].Attrs["id"])
}

func TestNormalize_ExpandsMultiIDSignalDeclaration(t *testing.T) {
	src := `
architecture rtl of e is
  signal x, y, z: bit;
begin
end rtl;
`
	normalized := Normalize(parse(t, src))

	decls := normalized.FirstChildTagged("architecture").FirstChildTagged("declarations")
	require.NotNil(t, decls)
	sigs := decls.ChildrenTagged("signalDeclaration")
	require.Len(t, sigs, 3)
	assert.Equal(t, "x", sigs[0].Attrs["id"])
	assert.Equal(t, "y", sigs[1].Attrs["id"])
	assert.Equal(t, "z", sigs[2].Attrs["id"])
	for _, s := range sigs {
		assert.Nil(t, s.FirstChildTagged("ids"))
		typ := s.FirstChildTagged("type")
		require.NotNil(t, typ)
		assert.Equal(t, "bit", typ.Attrs["id"])
	}
}

func TestNormalize_ExpandsSubprogramParameters(t *testing.T) {
	src := `
package p is
  function maj (signal a, b, c: in bit) return bit;
end package p;
`
	normalized := Normalize(parse(t, src))

	fn := normalized.FirstChildTagged("package").
		FirstChildTagged("declarations").
		FirstChildTagged("functionDeclaration")
	require.NotNil(t, fn)
	params := fn.FirstChildTagged("functionParameters")
	require.NotNil(t, params)
	sigs := params.ChildrenTagged("signalParameter")
	require.Len(t, sigs, 3)
	assert.Equal(t, "a", sigs[0].Attrs["id"])
	assert.Equal(t, "in", sigs[0].Attrs["io"])
	assert.Nil(t, sigs[0].FirstChildTagged("ids"))
}

func TestNormalize_ExpansionPreservesOtherAttributesAndOrder(t *testing.T) {
	src := `
architecture rtl of e is
  signal a: bit;
  signal x, y: bit := '0';
  signal b: bit;
begin
end rtl;
`
	normalized := Normalize(parse(t, src))
	decls := normalized.FirstChildTagged("architecture").FirstChildTagged("declarations")
	sigs := decls.ChildrenTagged("signalDeclaration")
	require.Len(t, sigs, 4)
	// expansion inserts the copies where the multi-id declaration stood
	assert.Equal(t, "a", sigs[0].Attrs["id"])
	assert.Equal(t, "x", sigs[1].Attrs["id"])
	assert.Equal(t, "y", sigs[2].Attrs["id"])
	assert.Equal(t, "b", sigs[3].Attrs["id"])
	// the default value survives on each copy
	require.NotNil(t, sigs[1].FirstChildTagged("value"))
	require.NotNil(t, sigs[2].FirstChildTagged("value"))
	assert.Equal(t, sigs[1].Line(), sigs[2].Line())
}

func TestNormalize_IsIdempotent(t *testing.T) {
	src := `
entity delay is
  generic (n: integer := 4);
  port (a: in bit_vector(n downto 0); b: out bit);
end delay;

architecture rtl of delay is
  signal x, y: bit;
  signal counter: bit_vector(n downto 0);
begin
end rtl;
`
	once := Normalize(parse(t, src))
	twice := Normalize(once)
	assert.True(t, once.Equal(twice))
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	tree := parse(t, genericSrc)
	before := tree.String()
	Normalize(tree)
	assert.Equal(t, before, tree.String())
}
