// Package treeio reads and writes the intermediate tree format: an indented
// tag tree with attributes, one node per line, children indented one level
// deeper than their parent. It is the on-disk form vhd2xml writes and
// optimvhd/analysevhd read back, distinct from syntax.Tree.String()'s
// fixed two-space debug dump in that the indent width is configurable and
// the format is round-tripped by Read, not just produced for humans.
package treeio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
)

// DefaultIndent is the indent width used when none is configured.
const DefaultIndent = 2

// Write renders t to w using indent spaces per nesting level. Tags appear in
// source order, attributes with line first and the rest sorted by key, for a
// deterministic byte-for-byte
// output (round-tripping through Read and Write again reproduces the same
// text).
func Write(w io.Writer, t *syntax.Tree, indent int) error {
	if indent <= 0 {
		indent = DefaultIndent
	}
	bw := bufio.NewWriter(w)
	writeNode(bw, t, 0, indent)
	return bw.Flush()
}

func writeNode(w *bufio.Writer, t *syntax.Tree, depth, indent int) {
	fmt.Fprint(w, strings.Repeat(" ", depth*indent))
	fmt.Fprint(w, t.Tag)
	for _, k := range sortedAttrKeys(t) {
		fmt.Fprintf(w, " %s=%s", k, quote(t.Attrs[k]))
	}
	fmt.Fprint(w, "\n")
	for _, c := range t.Children {
		writeNode(w, c, depth+1, indent)
	}
}

func sortedAttrKeys(t *syntax.Tree) []string {
	keys := make([]string, 0, len(t.Attrs))
	for k := range t.Attrs {
		keys = append(keys, k)
	}
	// line first, then the rest alphabetically, so every node's most useful
	// attribute reads at a glance without hunting through the line.
	hasLine := false
	out := keys[:0:0]
	for _, k := range keys {
		if k == "line" {
			hasLine = true
			continue
		}
		out = append(out, k)
	}
	strSort(out)
	if hasLine {
		out = append([]string{"line"}, out...)
	}
	return out
}

func strSort(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func quote(s string) string {
	return strconv.Quote(s)
}

// Read parses the indented tree format produced by Write back into a
// syntax.Tree. indent must match the width Write used; Read infers nothing
// about indent width from the text itself, since a line with no attributes
// gives no signal of how many spaces make up one level.
func Read(r io.Reader, indent int) (*syntax.Tree, error) {
	if indent <= 0 {
		indent = DefaultIndent
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var root *syntax.Tree
	var stack []*syntax.Tree // stack[i] is the current node at depth i

	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		depth, rest := countIndent(raw, indent)
		node, err := parseNodeLine(rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if depth > len(stack) {
			return nil, fmt.Errorf("line %d: indentation jumps from depth %d to %d", lineNo, len(stack), depth)
		}
		stack = stack[:depth]

		if depth == 0 {
			if root != nil {
				return nil, fmt.Errorf("line %d: multiple root nodes", lineNo)
			}
			root = node
		} else {
			stack[depth-1].Add(node)
		}
		stack = append(stack, node)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("empty tree")
	}
	return root, nil
}

func countIndent(line string, indent int) (int, string) {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	return n / indent, line[n:]
}

// parseNodeLine parses "tag attr=\"val\" attr2=\"val2\"" into a new node.
func parseNodeLine(s string) (*syntax.Tree, error) {
	fields := splitNodeLine(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty node line")
	}
	node := syntax.NewTree(fields[0])
	for _, f := range fields[1:] {
		eq := strings.IndexByte(f, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed attribute %q", f)
		}
		key := f[:eq]
		val, err := strconv.Unquote(f[eq+1:])
		if err != nil {
			return nil, fmt.Errorf("malformed attribute value %q: %w", f, err)
		}
		node.Set(key, val)
	}
	return node, nil
}

// splitNodeLine splits on spaces that are not inside a quoted attribute
// value, since attribute values may themselves contain spaces.
func splitNodeLine(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ' ' && !inQuotes:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}
