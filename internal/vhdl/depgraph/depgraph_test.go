package depgraph

import (
	"strings"
	"testing"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/design"
	"github.com/dekarrin/vhdlfront/internal/vhdl/lex"
	"github.com/dekarrin/vhdlfront/internal/vhdl/normalize"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
	"github.com/dekarrin/vhdlfront/internal/vhdl/treeio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFile runs the whole front of the pipeline: lex, parse, normalize,
// load, so these tests exercise the tree shapes the analyzer actually sees.
func loadFile(t *testing.T, src string) *design.File {
	t.Helper()
	bag := diag.NewBag()
	toks := lex.New("t.vhd", src, bag).Lex()
	tree := syntax.New("t.vhd", toks, bag).ParseDesignFile()
	assert.False(t, bag.HasErrors(), "unexpected parse errors: %v", bag.Lines())
	return design.Load("t.vhd", normalize.Normalize(tree), bag)
}

func analyze(t *testing.T, f *design.File) *Graph {
	t.Helper()
	require.NotEmpty(t, f.Architectures)
	arch := f.Architectures[0]
	ent := f.Entities[arch.EntityName]
	require.NotNil(t, ent)
	bag := diag.NewBag()
	g := Analyze(ent, arch, bag)
	require.NotNil(t, g, "analysis failed: %v", bag.Lines())
	return g
}

func TestAnalyze_IdentityWireReachesOutput(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity ident is
  port (a: in bit; b: out bit);
end ident;

architecture rtl of ident is
begin
  b <= a;
end rtl;
`))
	assert.True(t, g.Reaches("a", "b"))
}

func TestAnalyze_GatedWireConditionDrivesTarget(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity gate is
  port (a: in bit; g: in bit; b: out bit);
end gate;

architecture rtl of gate is
begin
  b <= a when g = '1' else '0';
end rtl;
`))
	assert.True(t, g.Reaches("a", "b"))
	assert.True(t, g.Reaches("g", "b"))
}

func TestAnalyze_ThroughSignalIsTransitive(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity relay is
  port (a: in bit; z: out bit);
end relay;

architecture rtl of relay is
  signal s: bit;
begin
  s <= a;
  z <= s;
end rtl;
`))
	assert.True(t, g.Reaches("a", "s"))
	assert.True(t, g.Reaches("s", "z"))
	assert.True(t, g.Reaches("a", "z"))
}

func TestAnalyze_ProcessSensitivityPropagatesThroughIf(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity gated is
  port (clk: in bit; d: in bit; q: out bit);
end gated;

architecture rtl of gated is
begin
  process (clk)
  begin
    if rising_edge(clk) then
      q <= d;
    end if;
  end process;
end rtl;
`))
	assert.True(t, g.Reaches("clk", "q"))
	assert.True(t, g.Reaches("d", "q"))
}

func TestAnalyze_ElsifGuardsAccumulate(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity sel2 is
  port (s0: in bit; s1: in bit; a: in bit; b: in bit; q: out bit);
end sel2;

architecture rtl of sel2 is
begin
  process (s0, s1, a, b)
  begin
    if s0 = '1' then
      q <= a;
    elsif s1 = '1' then
      q <= b;
    end if;
  end process;
end rtl;
`))
	assert.True(t, g.Reaches("s0", "q"))
	assert.True(t, g.Reaches("s1", "q"))
	assert.True(t, g.Reaches("a", "q"))
	assert.True(t, g.Reaches("b", "q"))
}

func TestAnalyze_IfGenerateGuardBecomesMaster(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity gen is
  port (en: in bit; d: in bit; q: out bit);
end gen;

architecture rtl of gen is
begin
  g0: if en = '1' generate
    q <= d;
  end generate;
end rtl;
`))
	assert.True(t, g.Reaches("en", "q"))
	assert.True(t, g.Reaches("d", "q"))
}

func TestAnalyze_ComponentInstantiationIsStubbed(t *testing.T) {
	// component port-map dependency analysis is deliberately not inferred:
	// no edges flow through an instantiation.
	g := analyze(t, loadFile(t, `
entity top is
  port (a: in bit; z: out bit);
end top;

architecture struct of top is
  component buf is
    port (x: in bit; y: out bit);
  end component;
begin
  u0: buf port map (x => a, y => z);
end struct;
`))
	assert.False(t, g.Reaches("a", "z"))
}

func TestAnalyze_UnrelatedInputDoesNotReachOutput(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity two is
  port (a: in bit; b: in bit; z: out bit);
end two;

architecture rtl of two is
begin
  z <= a;
end rtl;
`))
	assert.True(t, g.Reaches("a", "z"))
	assert.False(t, g.Reaches("b", "z"))
}

func TestAnalyze_RedundantAssignmentChangesNothing(t *testing.T) {
	base := analyze(t, loadFile(t, `
entity r is
  port (a: in bit; z: out bit);
end r;

architecture rtl of r is
begin
  z <= a;
end rtl;
`))
	doubled := analyze(t, loadFile(t, `
entity r is
  port (a: in bit; z: out bit);
end r;

architecture rtl of r is
begin
  z <= a;
  z <= a;
end rtl;
`))
	assert.Equal(t, base.WriteDot(), doubled.WriteDot())
}

func TestAnalyze_MissingParallelStatementsIsFatalForArchitecture(t *testing.T) {
	// an architecture with an empty body has no parallelStatements subtree;
	// the analyzer reports MissingChild and yields no graph.
	f := loadFile(t, `
entity e is
  port (a: in bit; z: out bit);
end e;

architecture rtl of e is
begin
end rtl;
`)
	arch := f.Architectures[0]
	bag := diag.NewBag()
	g := Analyze(f.Entities["e"], arch, bag)
	assert.Nil(t, g)
	require.True(t, bag.HasErrors())
	assert.Equal(t, diag.KindMissingChild, bag.Diagnostics[0].Kind)
}

func TestClose_IsIdempotent(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity chain is
  port (a: in bit; z: out bit);
end chain;

architecture rtl of chain is
  signal s1, s2, s3: bit;
begin
  s1 <= a;
  s2 <= s1;
  s3 <= s2;
  z <= s3;
end rtl;
`))
	before := g.WriteDot()
	g.close()
	assert.Equal(t, before, g.WriteDot())
	assert.True(t, g.Reaches("a", "z"))
}

func TestWriteDot_FormatAndEdgeRestriction(t *testing.T) {
	g := analyze(t, loadFile(t, `
entity relay is
  port (a: in bit; z: out bit);
end relay;

architecture rtl of relay is
  signal mid: bit;
begin
  mid <= a;
  z <= mid;
end rtl;
`))
	dot := g.WriteDot()

	assert.True(t, strings.HasPrefix(dot, "digraph rtl {\n"))
	assert.Contains(t, dot, `label = "Architecture RTL of entity RELAY";`)
	assert.Contains(t, dot, "   a [shape=box];")
	assert.Contains(t, dot, "   z [shape=ellipse];")
	assert.Contains(t, dot, "   a -> z;")
	// signals are matrix bookkeeping only: no node lines, no edges
	assert.NotContains(t, dot, "mid")
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestAnalyze_TreeFormatRoundTripYieldsSameGraph(t *testing.T) {
	src := `
entity relay is
  port (a: in bit; z: out bit);
end relay;

architecture rtl of relay is
  signal s: bit;
begin
  s <= a;
  z <= s when a = '1' else '0';
end rtl;
`
	bag := diag.NewBag()
	toks := lex.New("t.vhd", src, bag).Lex()
	tree := normalize.Normalize(syntax.New("t.vhd", toks, bag).ParseDesignFile())
	require.False(t, bag.HasErrors())

	direct := analyze(t, design.Load("t.vhd", tree, bag))

	var sb strings.Builder
	require.NoError(t, treeio.Write(&sb, tree, 2))
	reread, err := treeio.Read(strings.NewReader(sb.String()), 2)
	require.NoError(t, err)
	roundTripped := analyze(t, design.Load("t.vhd", reread, bag))

	assert.Equal(t, direct.WriteDot(), roundTripped.WriteDot())
}
