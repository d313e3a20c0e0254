package graph

import (
	"fmt"
	"slices"

	"github.com/ruinedyourlife/gluematch/utils/insn"
)

type ClassInfo struct {
	Name       string
	Obfuscated bool
	Origin     bool
	MappedName string
	Super      string
	Interfaces []string
}

// VarInfo describes a local variable. Arguments are normally derived from
// the method descriptor.
type VarInfo struct {
	Slot  int
	Desc  string
	Start int
	End   int
}

type MethodInfo struct {
	Name       string
	Desc       string
	Static     bool
	Obfuscated bool
	Real       bool
	MappedName string
	// Args overrides the arguments derived from Desc when non-nil.
	Args []VarInfo
	Vars []VarInfo
	// Parents adds hierarchy parents on top of the ones Link derives from
	// the class hierarchy.
	Parents []MemberRef
	Insns   []insn.Insn
}

type FieldInfo struct {
	Name       string
	Desc       string
	Static     bool
	Obfuscated bool
	Real       bool
	MappedName string
}

func (g *Graph) AddClass(side Side, info ClassInfo) (ClassID, error) {
	if _, ok := g.byName[side][info.Name]; ok {
		return NoClass, fmt.Errorf("class %s on side %s: %w", info.Name, side, ErrDuplicateSymbol)
	}
	id := ClassID(len(g.classes))
	g.classes = append(g.classes, &Class{
		ID:         id,
		Side:       side,
		Name:       info.Name,
		Obfuscated: info.Obfuscated,
		Origin:     info.Origin,
		MappedName: info.MappedName,
		Super:      NoClass,
		superName:  info.Super,
		ifaceNames: info.Interfaces,
	})
	g.byName[side][info.Name] = id
	g.sides[side] = append(g.sides[side], id)
	g.classMatch = append(g.classMatch, NoClass)
	g.classUID = append(g.classUID, -1)
	g.linked = false
	return id, nil
}

func (g *Graph) AddMethod(owner ClassID, info MethodInfo) (MethodID, error) {
	if int(owner) < 0 || int(owner) >= len(g.classes) {
		return NoMethod, fmt.Errorf("method %s%s: owner %d: %w", info.Name, info.Desc, owner, ErrUnknownSymbol)
	}
	cls := g.classes[owner]
	for _, other := range cls.Methods {
		if m := g.methods[other]; m.Name == info.Name && m.Desc == info.Desc {
			return NoMethod, fmt.Errorf("method %s#%s%s: %w", cls.Name, info.Name, info.Desc, ErrDuplicateSymbol)
		}
	}
	argDescs, ret, err := insn.SplitMethodDesc(info.Desc)
	if err != nil {
		return NoMethod, fmt.Errorf("method %s#%s: %w", cls.Name, info.Name, err)
	}

	id := MethodID(len(g.methods))
	m := &Method{
		ID:         id,
		Owner:      owner,
		Name:       info.Name,
		Desc:       info.Desc,
		Static:     info.Static,
		Obfuscated: info.Obfuscated,
		Real:       info.Real,
		MappedName: info.MappedName,
		Ret:        NoClass,
		RetDesc:    ret,
		Insns:      info.Insns,
		parentRefs: info.Parents,
	}

	if info.Args != nil {
		for i, a := range info.Args {
			m.Args = append(m.Args, Var{Method: id, Arg: true, Ordinal: i, Slot: a.Slot, Desc: a.Desc, Type: NoClass})
		}
	} else {
		slot := 1
		if info.Static {
			slot = 0
		}
		for i, d := range argDescs {
			m.Args = append(m.Args, Var{Method: id, Arg: true, Ordinal: i, Slot: slot, Desc: d, Type: NoClass})
			slot++
			if d == "J" || d == "D" {
				slot++
			}
		}
	}
	for i, v := range info.Vars {
		m.Vars = append(m.Vars, Var{Method: id, Ordinal: i, Slot: v.Slot, Desc: v.Desc, Type: NoClass, Start: v.Start, End: v.End})
	}

	g.methods = append(g.methods, m)
	cls.Methods = append(cls.Methods, id)
	g.methodMatch = append(g.methodMatch, NoMethod)
	g.methodUID = append(g.methodUID, -1)
	g.linked = false
	return id, nil
}

func (g *Graph) AddField(owner ClassID, info FieldInfo) (FieldID, error) {
	if int(owner) < 0 || int(owner) >= len(g.classes) {
		return NoField, fmt.Errorf("field %s: owner %d: %w", info.Name, owner, ErrUnknownSymbol)
	}
	cls := g.classes[owner]
	for _, other := range cls.Fields {
		if f := g.fields[other]; f.Name == info.Name && f.Desc == info.Desc {
			return NoField, fmt.Errorf("field %s#%s:%s: %w", cls.Name, info.Name, info.Desc, ErrDuplicateSymbol)
		}
	}
	id := FieldID(len(g.fields))
	g.fields = append(g.fields, &Field{
		ID:         id,
		Owner:      owner,
		Name:       info.Name,
		Desc:       info.Desc,
		Static:     info.Static,
		Obfuscated: info.Obfuscated,
		Real:       info.Real,
		MappedName: info.MappedName,
		Type:       NoClass,
	})
	cls.Fields = append(cls.Fields, id)
	g.fieldMatch = append(g.fieldMatch, NoField)
	g.fieldUID = append(g.fieldUID, -1)
	g.linked = false
	return id, nil
}

// Link resolves names into handles and rebuilds the derived indexes. Super
// classes and interfaces outside the graph are left unresolved. It must run
// after the last Add call and before matching.
func (g *Graph) Link() error {
	g.children = make([][]ClassID, len(g.classes))
	g.overriders = make([][]MethodID, len(g.methods))

	for _, c := range g.classes {
		c.Super = NoClass
		c.Interfaces = c.Interfaces[:0]
		if c.superName != "" {
			c.Super = g.ClassByName(c.Side, c.superName)
		}
		if c.Super != NoClass {
			g.children[c.Super] = append(g.children[c.Super], c.ID)
		}
		for _, name := range c.ifaceNames {
			if iface := g.ClassByName(c.Side, name); iface != NoClass {
				c.Interfaces = append(c.Interfaces, iface)
				g.children[iface] = append(g.children[iface], c.ID)
			}
		}
	}

	for _, f := range g.fields {
		f.Type, _ = g.ResolveType(g.classes[f.Owner].Side, f.Desc)
	}

	for _, m := range g.methods {
		side := g.classes[m.Owner].Side
		m.Ret, _ = g.ResolveType(side, m.RetDesc)
		for i := range m.Args {
			m.Args[i].Type, _ = g.ResolveType(side, m.Args[i].Desc)
		}
		for i := range m.Vars {
			m.Vars[i].Type, _ = g.ResolveType(side, m.Vars[i].Desc)
		}

		m.Parents = m.Parents[:0]
		if !m.Static && m.Name != "<init>" && m.Name != "<clinit>" {
			seen := make(map[ClassID]bool)
			for _, super := range g.supertypes(m.Owner) {
				m.Parents = g.appendDeclared(m.Parents, super, m.Name, m.Desc, seen)
			}
		}
		for _, ref := range m.parentRefs {
			owner := g.ClassByName(side, ref.Owner)
			if owner == NoClass {
				return fmt.Errorf("parent %s#%s%s of %s: %w", ref.Owner, ref.Name, ref.Desc, g.MethodString(m.ID), ErrUnknownSymbol)
			}
			parent := g.declared(owner, ref.Name, ref.Desc)
			if parent == NoMethod {
				return fmt.Errorf("parent %s#%s%s of %s: %w", ref.Owner, ref.Name, ref.Desc, g.MethodString(m.ID), ErrUnknownSymbol)
			}
			if !slices.Contains(m.Parents, parent) {
				m.Parents = append(m.Parents, parent)
			}
		}
		for _, p := range m.Parents {
			g.overriders[p] = append(g.overriders[p], m.ID)
		}
	}

	g.linked = true
	return nil
}

// Linked reports whether Link ran since the last Add call.
func (g *Graph) Linked() bool {
	return g.linked
}

func (g *Graph) supertypes(c ClassID) []ClassID {
	cls := g.classes[c]
	out := make([]ClassID, 0, len(cls.Interfaces)+1)
	if cls.Super != NoClass {
		out = append(out, cls.Super)
	}
	return append(out, cls.Interfaces...)
}

// appendDeclared adds the nearest declaration of name+desc at or above c.
func (g *Graph) appendDeclared(dst []MethodID, c ClassID, name, desc string, seen map[ClassID]bool) []MethodID {
	if seen[c] {
		return dst
	}
	seen[c] = true
	if m := g.declared(c, name, desc); m != NoMethod {
		if g.methods[m].Static || slices.Contains(dst, m) {
			return dst
		}
		return append(dst, m)
	}
	for _, super := range g.supertypes(c) {
		dst = g.appendDeclared(dst, super, name, desc, seen)
	}
	return dst
}

func (g *Graph) declared(c ClassID, name, desc string) MethodID {
	for _, id := range g.classes[c].Methods {
		if m := g.methods[id]; m.Name == name && m.Desc == desc {
			return id
		}
	}
	return NoMethod
}
