// Package design builds the in-memory design model from a normalized
// syntax.Tree: a Design holding one or more Files, each owning Entity and
// Architecture declarations, with Architecture bound to its Entity by name
// lookup rather than a pointer, so declaration order between the two never
// matters.
package design

import (
	"fmt"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/syntax"
)

// Port is a single entity or component port: its mode (in/out/inout) and
// declared type name. Constraint detail beyond the type name is not modeled
// here; depgraph only needs port identity and direction.
type Port struct {
	Name     string
	Mode     string
	TypeName string
}

// Generic is a single entity generic, with its default value's tree
// preserved for tooling that wants to inspect it after normalization has
// already inlined references to it elsewhere.
type Generic struct {
	Name     string
	TypeName string
	Default  *syntax.Tree
}

// Entity is the design model's view of an entity node: generics plus port
// maps split by mode. inout is its own map, not folded into in or out;
// collapsing it would lose edges a real bidirectional port can produce.
type Entity struct {
	Name     string
	Generics map[string]Generic
	In       map[string]Port
	Out      map[string]Port
	Inout    map[string]Port
}

// Signal is an architecture-local signal declaration.
type Signal struct {
	Name     string
	TypeName string
}

// Component is a component declaration local to an architecture's
// declarative part.
type Component struct {
	Name  string
	In    map[string]Port
	Out   map[string]Port
	Inout map[string]Port
}

// Architecture is the design model's view of an architecture node: its own
// signals and local component declarations, plus the architecture's tree
// node itself (depgraph walks its parallelStatements child directly rather
// than a further-lowered IR). EntityName names the owning entity; the
// binding is by name, resolved through the owning File, since an
// architecture can be declared before or after its entity.
type Architecture struct {
	Name       string
	EntityName string
	Signals    map[string]Signal
	Components map[string]Component
	Body       *syntax.Tree
}

// File is one design file's worth of entities and architectures.
type File struct {
	Name          string
	Entities      map[string]*Entity
	Architectures []*Architecture
}

// Design is the top-level aggregate owning the loaded files.
type Design struct {
	Files []*File
}

// AddFile appends f to the design.
func (d *Design) AddFile(f *File) {
	d.Files = append(d.Files, f)
}

// Entity looks up an entity by name across every loaded file.
func (d *Design) Entity(name string) (*Entity, bool) {
	for _, f := range d.Files {
		if e, ok := f.Entities[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// Load builds a File from a normalized tree, reporting UnknownEntity into
// bag (and skipping that architecture) for any architecture whose "of
// <entity>" clause names an entity not declared in the same tree. One bad
// architecture doesn't abort loading the rest of the file.
func Load(name string, tree *syntax.Tree, bag *diag.Bag) *File {
	f := &File{Name: name, Entities: map[string]*Entity{}}

	for _, en := range collect(tree, "entity") {
		e := loadEntity(en)
		f.Entities[e.Name] = e
	}

	for _, an := range collect(tree, "architecture") {
		entName := an.Attrs["entity"]
		if _, ok := f.Entities[entName]; !ok {
			if bag != nil {
				bag.Add(diag.Diagnostic{
					Kind:    diag.KindUnknownEntity,
					File:    name,
					Line:    an.Line(),
					Message: fmt.Sprintf("architecture %q references unknown entity %q", an.Attrs["id"], entName),
				})
			}
			continue
		}
		f.Architectures = append(f.Architectures, loadArchitecture(an))
	}

	return f
}

func loadEntity(en *syntax.Tree) *Entity {
	e := &Entity{
		Name:     en.Attrs["id"],
		Generics: map[string]Generic{},
		In:       map[string]Port{},
		Out:      map[string]Port{},
		Inout:    map[string]Port{},
	}

	if gc := en.FirstChildTagged("generic"); gc != nil {
		for _, param := range gc.ChildrenTagged("parameter") {
			g := Generic{Name: param.Attrs["id"]}
			if t := param.FirstChildTagged("type"); t != nil {
				g.TypeName = t.Attrs["id"]
			}
			if v := param.FirstChildTagged("value"); v != nil && len(v.Children) > 0 {
				g.Default = v.Children[0]
			}
			e.Generics[g.Name] = g
		}
	}
	loadPorts(en.FirstChildTagged("ports"), e.In, e.Out, e.Inout)
	return e
}

// loadPorts dispatches each port node to the map for its io mode. inout is
// its own case; an unknown or missing io attribute lands in the in map,
// which keeps a mis-declared port visible to analysis rather than dropped.
func loadPorts(ports *syntax.Tree, in, out, inout map[string]Port) {
	if ports == nil {
		return
	}
	for _, pn := range ports.ChildrenTagged("port") {
		port := Port{Name: pn.Attrs["id"], Mode: pn.Attrs["io"]}
		if t := pn.FirstChildTagged("type"); t != nil {
			port.TypeName = t.Attrs["id"]
		}
		switch port.Mode {
		case "out":
			out[port.Name] = port
		case "inout":
			inout[port.Name] = port
		default:
			in[port.Name] = port
		}
	}
}

func loadArchitecture(an *syntax.Tree) *Architecture {
	a := &Architecture{
		Name:       an.Attrs["id"],
		EntityName: an.Attrs["entity"],
		Signals:    map[string]Signal{},
		Components: map[string]Component{},
		Body:       an,
	}

	decls := an.FirstChildTagged("declarations")
	if decls == nil {
		return a
	}
	for _, sd := range decls.ChildrenTagged("signalDeclaration") {
		sig := Signal{Name: sd.Attrs["id"]}
		if t := sd.FirstChildTagged("type"); t != nil {
			sig.TypeName = t.Attrs["id"]
		}
		a.Signals[sig.Name] = sig
	}
	for _, cd := range decls.ChildrenTagged("componentDeclaration") {
		comp := Component{
			Name:  cd.Attrs["id"],
			In:    map[string]Port{},
			Out:   map[string]Port{},
			Inout: map[string]Port{},
		}
		loadPorts(cd.FirstChildTagged("ports"), comp.In, comp.Out, comp.Inout)
		a.Components[comp.Name] = comp
	}
	return a
}

func collect(root *syntax.Tree, tag string) []*syntax.Tree {
	var out []*syntax.Tree
	root.Walk(func(n *syntax.Tree) {
		if n.Tag == tag {
			out = append(out, n)
		}
	})
	return out
}
