package design

import (
	"testing"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/lex"
	"github.com/dekarrin/vhdlfront/internal/vhdl/normalize"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse runs the full front half of the pipeline -- lex, parse, normalize --
// since Load is specified against the normalized tree.
func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	bag := diag.NewBag()
	toks := lex.New("t.vhd", src, bag).Lex()
	tree := syntax.New("t.vhd", toks, bag).ParseDesignFile()
	assert.False(t, bag.HasErrors(), "unexpected parse errors: %v", bag.Lines())
	return normalize.Normalize(tree)
}

func TestLoad_EntityPortsSplitByMode(t *testing.T) {
	tree := parse(t, `
entity buf is
  port (a: in bit; b: out bit; c: inout bit);
end buf;
`)
	bag := diag.NewBag()
	f := Load("t.vhd", tree, bag)
	assert.False(t, bag.HasErrors())

	ent, ok := f.Entities["buf"]
	require.True(t, ok)
	assert.Contains(t, ent.In, "a")
	assert.Contains(t, ent.Out, "b")
	assert.Contains(t, ent.Inout, "c")
	assert.Equal(t, "bit", ent.In["a"].TypeName)
}

func TestLoad_EntityGenerics(t *testing.T) {
	tree := parse(t, `
entity e is
  generic (w: natural := 8);
  port (a: in bit);
end e;
`)
	bag := diag.NewBag()
	f := Load("t.vhd", tree, bag)
	assert.False(t, bag.HasErrors())

	ent := f.Entities["e"]
	g, ok := ent.Generics["w"]
	require.True(t, ok)
	assert.Equal(t, "natural", g.TypeName)
	require.NotNil(t, g.Default)
	assert.Equal(t, "8", g.Default.Attrs["id"])
}

func TestLoad_ArchitectureLoadsSignalsAndComponents(t *testing.T) {
	tree := parse(t, `
entity top is
  port (a: in bit; z: out bit);
end top;

architecture rtl of top is
  signal w, v: bit;
  component buf is
    port (x: in bit; y: out bit);
  end component;
begin
  u0: buf port map (x => a, y => w);
  z <= w;
end rtl;
`)
	bag := diag.NewBag()
	f := Load("t.vhd", tree, bag)
	assert.False(t, bag.HasErrors())
	require.Len(t, f.Architectures, 1)

	arch := f.Architectures[0]
	assert.Equal(t, "top", arch.EntityName)
	assert.Contains(t, arch.Signals, "w")
	assert.Contains(t, arch.Signals, "v")
	comp, ok := arch.Components["buf"]
	require.True(t, ok)
	assert.Contains(t, comp.In, "x")
	assert.Contains(t, comp.Out, "y")
}

func TestLoad_UnknownEntityReportsDiagnosticAndSkipsArchitecture(t *testing.T) {
	tree := parse(t, `
architecture rtl of ghost is
begin
  q <= a;
end rtl;
`)
	bag := diag.NewBag()
	f := Load("t.vhd", tree, bag)

	assert.True(t, bag.HasErrors())
	assert.Equal(t, diag.KindUnknownEntity, bag.Diagnostics[0].Kind)
	assert.Empty(t, f.Architectures)
}

func TestDesign_EntityLooksUpAcrossFiles(t *testing.T) {
	tree1 := parse(t, `
entity a is
  port (p: in bit);
end a;
`)
	tree2 := parse(t, `
entity b is
  port (p: out bit);
end b;
`)
	bag := diag.NewBag()
	d := &Design{}
	d.AddFile(Load("a.vhd", tree1, bag))
	d.AddFile(Load("b.vhd", tree2, bag))

	_, okA := d.Entity("a")
	_, okB := d.Entity("b")
	_, okMissing := d.Entity("c")
	assert.True(t, okA)
	assert.True(t, okB)
	assert.False(t, okMissing)
}
