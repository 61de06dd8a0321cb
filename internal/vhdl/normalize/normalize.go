// Package normalize rewrites a parsed syntax.Tree into its canonical form:
// generic-parameter references are inlined with a deep clone of the
// parameter's value subtree, then multi-identifier declarations and
// subprogram parameters are expanded to one node per identifier. Both passes
// are idempotent: running Normalize twice produces the same tree as running
// it once.
package normalize

import "github.com/dekarrin/vhdlfront/internal/vhdl/syntax"

// multiIDTags are the declaration and parameter forms whose ids child is
// expanded into per-identifier copies, in the order the passes run.
var multiIDTags = []string{
	"signalDeclaration",
	"variableDeclaration",
	"constantDeclaration",
	"fileDeclaration",
	"signalParameter",
	"variableParameter",
	"constantParameter",
	"idParameter",
}

// Normalize returns a new canonicalized tree. tree is not mutated; the
// result is built from a deep copy, so callers holding the original parse
// see no surprise. Generic inlining runs first so that cloned value
// subtrees are themselves subject to the later passes.
func Normalize(tree *syntax.Tree) *syntax.Tree {
	out := tree.Copy()
	inlineGenericParams(out)
	for _, tag := range multiIDTags {
		expandMultiIDs(out, tag)
	}
	return out
}

// inlineGenericParams performs pass 1: for every entity, for every
// parameter under its generic subtree that carries a value, replace each
// matching objectExpression inside the entity's ports subtree -- and inside
// every architecture bound to that entity -- with a deep clone of the
// parameter's value expression.
func inlineGenericParams(root *syntax.Tree) {
	for _, entity := range collect(root, "entity") {
		generic := entity.FirstChildTagged("generic")
		if generic == nil {
			continue
		}
		for _, param := range generic.ChildrenTagged("parameter") {
			name := param.Attrs["id"]
			value := param.FirstChildTagged("value")
			if name == "" || value == nil || len(value.Children) == 0 {
				continue
			}
			repl := value.Children[0]
			if ports := entity.FirstChildTagged("ports"); ports != nil {
				substitute(ports, name, repl)
			}
			for _, arch := range collect(root, "architecture") {
				if arch.Attrs["entity"] == entity.Attrs["id"] {
					substitute(arch, name, repl)
				}
			}
		}
	}
}

// substitute replaces every objectExpression descendant of node whose id
// matches name with a deep clone of repl. Children are snapshotted before
// recursion so the in-place child replacement never invalidates the walk.
func substitute(node *syntax.Tree, name string, repl *syntax.Tree) {
	children := make([]*syntax.Tree, len(node.Children))
	copy(children, node.Children)
	for i, c := range children {
		if c.Tag == "objectExpression" && c.Attrs["id"] == name {
			node.Children[i] = repl.Copy()
			continue
		}
		substitute(c, name, repl)
	}
}

// expandMultiIDs performs pass 2 for one declaration tag: every matching
// node with an ids child is replaced, in place in its parent's child list,
// by one copy per id element -- each copy carrying that identifier as its
// id attribute, with the ids child removed and every other attribute and
// child intact. The original multi-id node is deleted. Nodes without an
// ids child (including the output of a previous expansion) are left alone,
// which is what makes the pass idempotent.
func expandMultiIDs(root *syntax.Tree, tag string) {
	root.Walk(func(parent *syntax.Tree) {
		changed := false
		for _, c := range parent.Children {
			if c.Tag == tag && c.FirstChildTagged("ids") != nil {
				changed = true
				break
			}
		}
		if !changed {
			return
		}
		var out []*syntax.Tree
		for _, c := range parent.Children {
			if c.Tag != tag || c.FirstChildTagged("ids") == nil {
				out = append(out, c)
				continue
			}
			template := c.Copy()
			removeChildTagged(template, "ids")
			for _, id := range c.FirstChildTagged("ids").ChildrenTagged("id") {
				expanded := template.Copy()
				expanded.Set("id", id.Attrs["id"])
				out = append(out, expanded)
			}
		}
		parent.Children = out
	})
}

func removeChildTagged(node *syntax.Tree, tag string) {
	var out []*syntax.Tree
	for _, c := range node.Children {
		if c.Tag != tag {
			out = append(out, c)
		}
	}
	node.Children = out
}

// collect returns every node in the tree with the given tag, in document
// order.
func collect(root *syntax.Tree, tag string) []*syntax.Tree {
	var out []*syntax.Tree
	root.Walk(func(n *syntax.Tree) {
		if n.Tag == tag {
			out = append(out, n)
		}
	})
	return out
}
