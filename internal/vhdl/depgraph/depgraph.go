// Package depgraph computes, for one architecture, the transitive
// input-to-output dependency graph: a dense boolean reachability matrix
// over the architecture's in-ports, out-ports, and signals, built by
// walking the statement tree and closed to a fixed point by boolean matrix
// self-multiplication, then emitted as a Graphviz .dot digraph restricted
// to in-port -> out-port edges.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/design"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
)

// expressionTags is the closed set getExpressions recognizes: the direct
// children of a statement node that are expression subtrees whose referenced
// identifiers become masters.
var expressionTags = map[string]bool{
	"logicalExpression":     true,
	"relationalExpression":  true,
	"shiftExpression":       true,
	"addingExpression":      true,
	"multiplyingExpression": true,
	"exponentialExpression": true,
	"prefixExpression":      true,
	"constantExpression":    true,
	"newExpression":         true,
	"timeExpression":        true,
	"objectExpression":      true,
	"recordExpression":      true,
	"aggregateExpression":   true,
}

// Graph is the computed result for one architecture: the identifier index
// and the closed reachability matrix over it.
type Graph struct {
	ArchID     string
	EntityName string

	idList []string
	pos    map[string]int
	inPos  map[string]int
	outPos map[string]int
	sigPos map[string]int
	mat    [][]bool
}

// Reaches reports whether from reaches to after closure.
func (g *Graph) Reaches(from, to string) bool {
	fi, ok1 := g.pos[from]
	ti, ok2 := g.pos[to]
	if !ok1 || !ok2 {
		return false
	}
	return g.mat[fi][ti]
}

// Analyze builds the dependency graph for arch against its entity ent,
// reporting a MissingChild diagnostic into bag and returning nil when the
// architecture's statement tree lacks a subtree the walk requires --
// fatal for that architecture, per the error policy, but not for the run.
//
// Identifier indices are assigned in the fixed order: entity in-ports,
// entity out-ports, architecture signals (each group sorted by name for a
// deterministic layout). An inout port takes one index carried in both the
// in and out submaps, so it participates in both halves of the matrix.
func Analyze(ent *design.Entity, arch *design.Architecture, bag *diag.Bag) *Graph {
	g := &Graph{
		ArchID:     arch.Name,
		EntityName: ent.Name,
		pos:        map[string]int{},
		inPos:      map[string]int{},
		outPos:     map[string]int{},
		sigPos:     map[string]int{},
	}

	add := func(name string) int {
		if i, ok := g.pos[name]; ok {
			return i
		}
		i := len(g.idList)
		g.pos[name] = i
		g.idList = append(g.idList, name)
		return i
	}

	for _, name := range sortedKeys(ent.In) {
		g.inPos[name] = add(name)
	}
	for _, name := range sortedKeys(ent.Inout) {
		g.inPos[name] = add(name)
	}
	for _, name := range sortedKeys(ent.Out) {
		g.outPos[name] = add(name)
	}
	for _, name := range sortedKeys(ent.Inout) {
		g.outPos[name] = g.pos[name]
	}
	for _, name := range sortedKeys(arch.Signals) {
		g.sigPos[name] = add(name)
	}

	n := len(g.idList)
	g.mat = make([][]bool, n)
	for i := range g.mat {
		g.mat[i] = make([]bool, n)
		g.mat[i][i] = true
	}

	parStmts := arch.Body.FirstChildTagged("parallelStatements")
	if parStmts == nil {
		reportMissing(bag, arch, "parallelStatements")
		return nil
	}
	w := &walker{g: g, arch: arch}
	if err := w.walkParallel(parStmts, nil); err != nil {
		if bag != nil {
			bag.Add(*err)
		}
		return nil
	}

	g.close()
	return g
}

func reportMissing(bag *diag.Bag, arch *design.Architecture, child string) {
	if bag == nil {
		return
	}
	bag.Add(missingChild(arch, child))
}

func missingChild(arch *design.Architecture, child string) diag.Diagnostic {
	return diag.Diagnostic{
		Kind:    diag.KindMissingChild,
		File:    arch.Name,
		Line:    arch.Body.Line(),
		Message: fmt.Sprintf("architecture %q: missing %s subtree", arch.Name, child),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// setDep records a direct dependency of slave on every identifier in
// masters. Identifiers not in the matrix (constants, loop variables,
// function names) are silently skipped -- the matrix is only over ports and
// signals.
func (g *Graph) setDep(masters []string, slave string) {
	si, ok := g.pos[slave]
	if !ok {
		return
	}
	for _, m := range masters {
		if mi, ok := g.pos[m]; ok {
			g.mat[mi][si] = true
		}
	}
}

// close computes the reachability fixed point by literal boolean matrix
// squaring: T = M·M saturated to 0/1, repeated until T equals M. The
// diagonal starts as identity, so each squaring at least preserves M and
// the iteration count is logarithmic in the longest dependency chain.
func (g *Graph) close() {
	n := len(g.mat)
	for {
		next := make([][]bool, n)
		changed := false
		for i := 0; i < n; i++ {
			next[i] = make([]bool, n)
			for j := 0; j < n; j++ {
				v := false
				for k := 0; k < n; k++ {
					if g.mat[i][k] && g.mat[k][j] {
						v = true
						break
					}
				}
				next[i][j] = v
				if v != g.mat[i][j] {
					changed = true
				}
			}
		}
		g.mat = next
		if !changed {
			return
		}
	}
}

// walker descends the statement tree accumulating direct-dependency edges.
// Each statement receives its own copy of the incoming master list, so
// masters collected inside one statement never leak into a sibling.
type walker struct {
	g    *Graph
	arch *design.Architecture
}

// walkParallel dispatches each child of a parallelStatements node. Block,
// concurrent procedure call, concurrent assert, selected assignment, entity
// and configuration instantiation contribute no edges; component
// instantiation is the documented stub (no edges through components).
func (w *walker) walkParallel(stmts *syntax.Tree, master []string) *diag.Diagnostic {
	for _, stmt := range stmts.Children {
		switch stmt.Tag {
		case "processParallelStatement":
			if err := w.walkProcess(stmt, copyList(master)); err != nil {
				return err
			}
		case "assignParallelStatement":
			w.walkAssign(stmt, copyList(master))
		case "ifParallelStatement":
			if err := w.walkIfGenerate(stmt, copyList(master)); err != nil {
				return err
			}
		case "forParallelStatement":
			if err := w.walkForGenerate(stmt, copyList(master)); err != nil {
				return err
			}
		case "blockParallelStatement", "procedureParallelStatement",
			"assertParallelStatement", "selectParallelStatement",
			"componentParallelStatement", "entityParallelStatement",
			"configurationParallelStatement":
			// acknowledged, no dependency contribution
		}
	}
	return nil
}

// walkProcess collects the process's sensitivity identifiers (any range or
// parameters child) into the master list, then walks the sequential body.
func (w *walker) walkProcess(proc *syntax.Tree, master []string) *diag.Diagnostic {
	for _, c := range proc.Children {
		if c.Tag == "range" || c.Tag == "parameters" {
			master = append(master, objectIDs(c)...)
		}
	}
	seq := proc.FirstChildTagged("sequentialStatements")
	if seq == nil {
		d := missingChild(w.arch, "sequentialStatements")
		return &d
	}
	return w.walkSequential(seq, master)
}

// walkAssign handles both assignParallelStatement and
// signalAssignSequentialStatement, which share one shape: direct
// objectExpression children are assignment targets; direct record and
// aggregate expression children contribute masters; every identifier under
// any signalValue child (including a conditional alternative's when guard)
// is a master. Each target then depends on the full master list.
func (w *walker) walkAssign(stmt *syntax.Tree, master []string) {
	var targets []string
	for _, c := range stmt.Children {
		switch c.Tag {
		case "objectExpression":
			targets = append(targets, c.Attrs["id"])
		case "recordExpression", "aggregateExpression":
			master = append(master, objectIDs(c)...)
		}
	}
	for _, sv := range collectTagged(stmt, "signalValue") {
		master = append(master, objectIDs(sv)...)
	}
	for _, t := range targets {
		w.g.setDep(master, t)
	}
}

// walkIfGenerate adds the guard's identifiers to the master list and
// recurses into the generate body.
func (w *walker) walkIfGenerate(stmt *syntax.Tree, master []string) *diag.Diagnostic {
	for _, e := range getExpressions(stmt) {
		master = append(master, objectIDs(e)...)
	}
	gen := stmt.FirstChildTagged("generate")
	if gen == nil {
		d := missingChild(w.arch, "generate")
		return &d
	}
	par := gen.FirstChildTagged("parallelStatements")
	if par == nil {
		d := missingChild(w.arch, "parallelStatements")
		return &d
	}
	return w.walkParallel(par, master)
}

// walkForGenerate recurses into the generate body. The loop range bounds
// are elaboration-time values, not signals, so they add no masters.
func (w *walker) walkForGenerate(stmt *syntax.Tree, master []string) *diag.Diagnostic {
	gen := stmt.FirstChildTagged("generate")
	if gen == nil {
		d := missingChild(w.arch, "generate")
		return &d
	}
	par := gen.FirstChildTagged("parallelStatements")
	if par == nil {
		d := missingChild(w.arch, "parallelStatements")
		return &d
	}
	return w.walkParallel(par, master)
}

// walkSequential dispatches each child of a sequentialStatements node.
// Signal assignment and if are the forms that contribute edges; wait,
// assert, report, variable assignment, procedure call, case, loops, next,
// exit, return and null are acknowledged and skipped.
func (w *walker) walkSequential(stmts *syntax.Tree, master []string) *diag.Diagnostic {
	for _, stmt := range stmts.Children {
		switch stmt.Tag {
		case "signalAssignSequentialStatement":
			w.walkAssign(stmt, copyList(master))
		case "ifSequentialStatement":
			if err := w.walkIf(stmt, copyList(master)); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkIf augments the master list with the guard's identifiers, walks the
// then branch, then each elseif arm (whose guard joins the accumulating
// master list before its branch is walked), then the else branch. The
// masters accumulate across arms: a later branch runs only because every
// earlier guard was evaluated.
func (w *walker) walkIf(stmt *syntax.Tree, master []string) *diag.Diagnostic {
	for _, e := range getExpressions(stmt) {
		master = append(master, objectIDs(e)...)
	}
	then := stmt.FirstChildTagged("then")
	if then == nil {
		d := missingChild(w.arch, "then")
		return &d
	}
	seq := then.FirstChildTagged("sequentialStatements")
	if seq == nil {
		d := missingChild(w.arch, "sequentialStatements")
		return &d
	}
	if err := w.walkSequential(seq, master); err != nil {
		return err
	}

	for _, arm := range stmt.ChildrenTagged("elseif") {
		for _, e := range getExpressions(arm) {
			master = append(master, objectIDs(e)...)
		}
		armThen := arm.FirstChildTagged("then")
		if armThen == nil {
			d := missingChild(w.arch, "then")
			return &d
		}
		armSeq := armThen.FirstChildTagged("sequentialStatements")
		if armSeq == nil {
			d := missingChild(w.arch, "sequentialStatements")
			return &d
		}
		if err := w.walkSequential(armSeq, master); err != nil {
			return err
		}
	}

	if els := stmt.FirstChildTagged("else"); els != nil {
		elseSeq := els.FirstChildTagged("sequentialStatements")
		if elseSeq == nil {
			d := missingChild(w.arch, "sequentialStatements")
			return &d
		}
		return w.walkSequential(elseSeq, master)
	}
	return nil
}

// getExpressions returns the direct children of n whose tag is in the
// expression set -- the statement's guard/selector subtrees.
func getExpressions(n *syntax.Tree) []*syntax.Tree {
	var out []*syntax.Tree
	for _, c := range n.Children {
		if expressionTags[c.Tag] {
			out = append(out, c)
		}
	}
	return out
}

// objectIDs returns the id of every objectExpression in the subtree rooted
// at n, including n itself.
func objectIDs(n *syntax.Tree) []string {
	var out []string
	n.Walk(func(t *syntax.Tree) {
		if t.Tag == "objectExpression" {
			out = append(out, t.Attrs["id"])
		}
	})
	return out
}

// collectTagged returns every descendant of n with the given tag.
func collectTagged(n *syntax.Tree, tag string) []*syntax.Tree {
	var out []*syntax.Tree
	n.Walk(func(t *syntax.Tree) {
		if t != n && t.Tag == tag {
			out = append(out, t)
		}
	})
	return out
}

func copyList(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// WriteDot renders the graph per the output contract: a digraph named after
// the architecture, a label line, one box node per in-port, one ellipse
// node per out-port, and one edge per (in-port, out-port) pair the closed
// matrix marks reachable. Signals are matrix bookkeeping only and get no
// node of their own. An inout port is declared on both sides, and no edge
// from an inout port to itself is emitted.
func (g *Graph) WriteDot() string {
	var sb strings.Builder
	sb.WriteString("digraph " + g.ArchID + " {\n")
	sb.WriteString("label = \"Architecture " + strings.ToUpper(g.ArchID) +
		" of entity " + strings.ToUpper(g.EntityName) + "\";\n")
	for _, name := range sortedKeys(g.inPos) {
		sb.WriteString("   " + name + " [shape=box];\n")
	}
	for _, name := range sortedKeys(g.outPos) {
		sb.WriteString("   " + name + " [shape=ellipse];\n")
	}
	for _, in := range sortedKeys(g.inPos) {
		for _, out := range sortedKeys(g.outPos) {
			i, j := g.inPos[in], g.outPos[out]
			if i != j && g.mat[i][j] {
				sb.WriteString("   " + in + " -> " + out + ";\n")
			}
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
