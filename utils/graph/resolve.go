package graph

import (
	"slices"

	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// ResolveType returns the element class and array dimensions of a field
// descriptor. Primitives and classes outside the graph give NoClass.
func (g *Graph) ResolveType(side Side, desc string) (ClassID, int) {
	elem, dims := insn.ElementType(desc)
	name, ok := insn.ClassName(elem)
	if !ok {
		return NoClass, dims
	}
	return g.ClassByName(side, name), dims
}

// ResolveMethod finds the method a call to name+desc on cls dispatches to,
// searching super classes and then interfaces. Interface calls search the
// interfaces first.
func (g *Graph) ResolveMethod(cls ClassID, name, desc string, itf bool) MethodID {
	if m := g.declared(cls, name, desc); m != NoMethod {
		return m
	}
	if itf {
		if m := g.resolveInInterfaces(cls, name, desc, make(map[ClassID]bool)); m != NoMethod {
			return m
		}
	}
	for super := g.classes[cls].Super; super != NoClass; super = g.classes[super].Super {
		if m := g.declared(super, name, desc); m != NoMethod {
			return m
		}
	}
	if !itf {
		return g.resolveInInterfaces(cls, name, desc, make(map[ClassID]bool))
	}
	return NoMethod
}

func (g *Graph) resolveInInterfaces(cls ClassID, name, desc string, seen map[ClassID]bool) MethodID {
	for c := cls; c != NoClass; c = g.classes[c].Super {
		for _, iface := range g.classes[c].Interfaces {
			if seen[iface] {
				continue
			}
			seen[iface] = true
			if m := g.declared(iface, name, desc); m != NoMethod {
				return m
			}
			if m := g.resolveInInterfaces(iface, name, desc, seen); m != NoMethod {
				return m
			}
		}
	}
	return NoMethod
}

// ResolveField follows field lookup order: the class, its interfaces, then
// its super class.
func (g *Graph) ResolveField(cls ClassID, name, desc string) FieldID {
	seen := make(map[ClassID]bool)
	var walk func(c ClassID) FieldID
	walk = func(c ClassID) FieldID {
		if c == NoClass || seen[c] {
			return NoField
		}
		seen[c] = true
		for _, id := range g.classes[c].Fields {
			if f := g.fields[id]; f.Name == name && f.Desc == desc {
				return id
			}
		}
		for _, iface := range g.classes[c].Interfaces {
			if f := walk(iface); f != NoField {
				return f
			}
		}
		return walk(g.classes[c].Super)
	}
	return walk(cls)
}

// HierarchyMembers returns m together with every method reachable through
// hierarchy parents, overriders and matches on either side, ordered by
// handle.
func (g *Graph) HierarchyMembers(m MethodID) []MethodID {
	seen := map[MethodID]bool{m: true}
	queue := []MethodID{m}
	visit := func(x MethodID) {
		if x != NoMethod && !seen[x] {
			seen[x] = true
			queue = append(queue, x)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range g.methods[cur].Parents {
			visit(p)
		}
		for _, o := range g.overriders[cur] {
			visit(o)
		}
		visit(g.methodMatch[cur])
	}

	out := make([]MethodID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
