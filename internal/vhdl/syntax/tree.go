// Package syntax defines the tagged tree produced by the parser, and the
// recursive-descent parser that builds it. Every node is (tag, attributes,
// ordered children), owned exclusively by its parent, with no cycles and no
// parent back-links -- every consumer only ever walks downward.
package syntax

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dekarrin/rezi"
)

// Tree is a single node of the syntax tree: a tag from the parser's closed
// vocabulary, a string-keyed attribute bag, and ordered children. The zero
// value is not useful; build with NewTree.
type Tree struct {
	Tag      string
	Attrs    map[string]string
	Children []*Tree
}

// NewTree creates a node with the given tag and no attributes or children.
func NewTree(tag string) *Tree {
	return &Tree{Tag: tag, Attrs: map[string]string{}}
}

// SetLine records the node's 1-based source line. Every node that
// corresponds to a concrete source location carries one.
func (t *Tree) SetLine(line int) *Tree {
	t.Attrs["line"] = strconv.Itoa(line)
	return t
}

// Line returns the node's line attribute, or 0 if unset or unparsable.
func (t *Tree) Line() int {
	n, err := strconv.Atoi(t.Attrs["line"])
	if err != nil {
		return 0
	}
	return n
}

// Set assigns an attribute and returns the receiver, for chaining during
// tree construction.
func (t *Tree) Set(key, value string) *Tree {
	t.Attrs[key] = value
	return t
}

// Add appends a child and returns the receiver.
func (t *Tree) Add(child *Tree) *Tree {
	if child != nil {
		t.Children = append(t.Children, child)
	}
	return t
}

// FirstChildLine returns the node's line, or, when its own line attribute
// is unset, recursively the first child's line (and so on down) -- how
// assignment nodes keyed by their target acquire a line from the target
// subtree.
func (t *Tree) FirstChildLine() int {
	if l := t.Line(); l != 0 {
		return l
	}
	for _, c := range t.Children {
		if l := c.FirstChildLine(); l != 0 {
			return l
		}
	}
	return 0
}

// ChildrenTagged returns the direct children whose Tag equals tag, in
// source order.
func (t *Tree) ChildrenTagged(tag string) []*Tree {
	var out []*Tree
	for _, c := range t.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildTagged returns the first direct child with the given tag, or
// nil.
func (t *Tree) FirstChildTagged(tag string) *Tree {
	for _, c := range t.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Walk visits t and every descendant, pre-order.
func (t *Tree) Walk(visit func(*Tree)) {
	if t == nil {
		return
	}
	visit(t)
	for _, c := range t.Children {
		c.Walk(visit)
	}
}

// Copy returns a deep-copied duplicate of the subtree rooted at t, used by
// the normalizer's generic-parameter inlining and declaration expansion.
func (t *Tree) Copy() *Tree {
	if t == nil {
		return nil
	}
	cp := &Tree{Tag: t.Tag, Attrs: make(map[string]string, len(t.Attrs))}
	for k, v := range t.Attrs {
		cp.Attrs[k] = v
	}
	cp.Children = make([]*Tree, len(t.Children))
	for i, c := range t.Children {
		cp.Children[i] = c.Copy()
	}
	return cp
}

// Equal reports whether t and o have identical tag, attributes, and
// children recursively. Mainly for round-trip and idempotence tests.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Tag != o.Tag || len(t.Attrs) != len(o.Attrs) || len(t.Children) != len(o.Children) {
		return false
	}
	for k, v := range t.Attrs {
		if ov, ok := o.Attrs[k]; !ok || ov != v {
			return false
		}
	}
	for i := range t.Children {
		if !t.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// String renders a prettified, indented representation suitable for
// line-by-line comparison in test failures and the vhdshell REPL. The
// on-disk format lives in treeio; this form is for human eyes only.
func (t *Tree) String() string {
	var sb strings.Builder
	t.write(&sb, 0)
	return sb.String()
}

func (t *Tree) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("(")
	sb.WriteString(t.Tag)
	for _, k := range sortedKeys(t.Attrs) {
		fmt.Fprintf(sb, " %s=%q", k, t.Attrs[k])
	}
	sb.WriteString(")")
	for _, c := range t.Children {
		sb.WriteString("\n")
		c.write(sb, depth+1)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalBinary implements encoding.BinaryMarshaler by encoding Tag,
// Attrs, and Children (recursively) with rezi, in that field order. See
// internal/vhdl/cache for the encode/decode call sites.
func (t *Tree) MarshalBinary() ([]byte, error) {
	tagBytes, err := rezi.Enc(t.Tag)
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	attrsBytes, err := rezi.Enc(t.Attrs)
	if err != nil {
		return nil, fmt.Errorf("attrs: %w", err)
	}
	childrenBytes, err := rezi.Enc(t.Children)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}

	data := make([]byte, 0, len(tagBytes)+len(attrsBytes)+len(childrenBytes))
	data = append(data, tagBytes...)
	data = append(data, attrsBytes...)
	data = append(data, childrenBytes...)
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, reading back the
// fields in the order MarshalBinary wrote them.
func (t *Tree) UnmarshalBinary(data []byte) error {
	n, err := rezi.Dec(data, &t.Tag)
	if err != nil {
		return fmt.Errorf("tag: %w", err)
	}
	data = data[n:]

	n, err = rezi.Dec(data, &t.Attrs)
	if err != nil {
		return fmt.Errorf("attrs: %w", err)
	}
	data = data[n:]

	_, err = rezi.Dec(data, &t.Children)
	if err != nil {
		return fmt.Errorf("children: %w", err)
	}
	return nil
}
