package graph

import "github.com/ruinedyourlife/gluematch/utils/insn"

// MayEqualClasses reports whether a and b could be the same class: they sit
// on opposite sides, a matched class equals only its partner, and names are
// compared when either is not obfuscated.
func (g *Graph) MayEqualClasses(a, b ClassID) bool {
	if a == b {
		return a != NoClass
	}
	if a == NoClass || b == NoClass {
		return false
	}
	ca, cb := g.classes[a], g.classes[b]
	if ca.Side == cb.Side {
		return false
	}
	if m := g.classMatch[a]; m != NoClass {
		return m == b
	}
	if g.classMatch[b] != NoClass {
		return false
	}
	if !ca.Obfuscated || !cb.Obfuscated {
		return ca.Name == cb.Name
	}
	return true
}

// MayEqualClassesNullable treats two absent classes as equal and one absent
// class as unequal.
func (g *Graph) MayEqualClassesNullable(a, b ClassID) bool {
	if a == NoClass || b == NoClass {
		return a == b
	}
	return g.MayEqualClasses(a, b)
}

func (g *Graph) MayEqualMethods(a, b MethodID) bool {
	if a == b {
		return a != NoMethod
	}
	if a == NoMethod || b == NoMethod {
		return false
	}
	if m := g.methodMatch[a]; m != NoMethod {
		return m == b
	}
	if g.methodMatch[b] != NoMethod {
		return false
	}
	ma, mb := g.methods[a], g.methods[b]
	if (!ma.Obfuscated || !mb.Obfuscated) && (ma.Name != mb.Name || ma.Desc != mb.Desc) {
		return false
	}
	return g.MayEqualClasses(ma.Owner, mb.Owner)
}

func (g *Graph) MayEqualMethodsNullable(a, b MethodID) bool {
	if a == NoMethod || b == NoMethod {
		return a == b
	}
	return g.MayEqualMethods(a, b)
}

func (g *Graph) MayEqualFields(a, b FieldID) bool {
	if a == b {
		return a != NoField
	}
	if a == NoField || b == NoField {
		return false
	}
	if m := g.fieldMatch[a]; m != NoField {
		return m == b
	}
	if g.fieldMatch[b] != NoField {
		return false
	}
	fa, fb := g.fields[a], g.fields[b]
	if (!fa.Obfuscated || !fb.Obfuscated) && (fa.Name != fb.Name || fa.Desc != fb.Desc) {
		return false
	}
	return g.MayEqualClasses(fa.Owner, fb.Owner)
}

func (g *Graph) MayEqualFieldsNullable(a, b FieldID) bool {
	if a == NoField || b == NoField {
		return a == b
	}
	return g.MayEqualFields(a, b)
}

// MayEqualVars compares the role, position, owning method and type of two
// variables. Locals are not compared by ordinal since compilers number them
// differently.
func (g *Graph) MayEqualVars(a, b *Var) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Arg != b.Arg {
		return false
	}
	if a.Arg && a.Ordinal != b.Ordinal {
		return false
	}
	if !g.MayEqualMethods(a.Method, b.Method) {
		return false
	}
	return g.MayEqualTypes(g.MethodSide(a.Method), a.Desc, g.MethodSide(b.Method), b.Desc)
}

// MayEqualTypes compares two field descriptors from the given sides.
// Array dimensions must agree; element classes go through MayEqualClasses
// and primitives compare by name. Element classes missing from the graph on
// both sides are equal, missing on one side only they are not.
func (g *Graph) MayEqualTypes(sideA Side, descA string, sideB Side, descB string) bool {
	elemA, dimsA := insn.ElementType(descA)
	elemB, dimsB := insn.ElementType(descB)
	if dimsA != dimsB {
		return false
	}
	nameA, okA := insn.ClassName(elemA)
	nameB, okB := insn.ClassName(elemB)
	if !okA || !okB {
		return elemA == elemB
	}
	clsA, clsB := g.ClassByName(sideA, nameA), g.ClassByName(sideB, nameB)
	if clsA == NoClass || clsB == NoClass {
		return clsA == clsB
	}
	return g.MayEqualClasses(clsA, clsB)
}
