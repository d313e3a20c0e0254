package glue

import (
	"strconv"
	"strings"

	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// Prefixes are prepended to UIDs to form glue names.
type Prefixes struct {
	Class, Method, Field string
}

var DefaultPrefixes = Prefixes{Class: "class_", Method: "method_", Field: "field_"}

// Namer renames the symbols of one side to their glue names. Mapped names
// win over UIDs; symbols with neither keep their own name.
type Namer struct {
	g        *graph.Graph
	side     graph.Side
	prefixes Prefixes
}

func NewNamer(g *graph.Graph, side graph.Side, prefixes Prefixes) *Namer {
	return &Namer{g: g, side: side, prefixes: prefixes}
}

// Class maps an internal class name. Nested classes keep their numeric
// segments and rename the others one at a time, starting from the
// outermost class.
func (n *Namer) Class(name string) string {
	if c := n.g.ClassByName(n.side, name); c != graph.NoClass {
		if mapped := n.g.Class(c).MappedName; mapped != "" {
			return mapped
		}
	}

	i := strings.LastIndexByte(name, '$')
	if i < 0 {
		return n.uidName(name, name)
	}
	outer, inner := name[:i], name[i+1:]
	if !isNumeric(inner) {
		inner = n.uidName(name, inner)
	}
	return n.Class(outer) + "$" + inner
}

// uidName returns the UID name of the class called full, or fallback when
// it has none.
func (n *Namer) uidName(full, fallback string) string {
	c := n.g.ClassByName(n.side, full)
	if c == graph.NoClass || !n.g.Class(c).Obfuscated {
		return fallback
	}
	if uid := n.g.ClassUID(c); uid > 0 {
		return n.prefixes.Class + strconv.Itoa(uid)
	}
	return fallback
}

func (n *Namer) Method(m graph.MethodID) string {
	method := n.g.Method(m)
	switch {
	case method.MappedName != "":
		return method.MappedName
	case method.Obfuscated && n.g.MethodUID(m) > 0:
		return n.prefixes.Method + strconv.Itoa(n.g.MethodUID(m))
	}
	return method.Name
}

func (n *Namer) Field(f graph.FieldID) string {
	field := n.g.Field(f)
	switch {
	case field.MappedName != "":
		return field.MappedName
	case field.Obfuscated && n.g.FieldUID(f) > 0:
		return n.prefixes.Field + strconv.Itoa(n.g.FieldUID(f))
	}
	return field.Name
}

// Desc renames every class inside a field or method descriptor.
func (n *Namer) Desc(desc string) string {
	return insn.MapClassNames(desc, n.Class)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
