package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClass(t *testing.T, g *Graph, side Side, info ClassInfo) ClassID {
	t.Helper()
	id, err := g.AddClass(side, info)
	require.NoError(t, err)
	return id
}

func mustMethod(t *testing.T, g *Graph, owner ClassID, info MethodInfo) MethodID {
	t.Helper()
	id, err := g.AddMethod(owner, info)
	require.NoError(t, err)
	return id
}

func mustField(t *testing.T, g *Graph, owner ClassID, info FieldInfo) FieldID {
	t.Helper()
	id, err := g.AddField(owner, info)
	require.NoError(t, err)
	return id
}

// pairGraph builds one obfuscated class per side, each with a method and a
// field.
func pairGraph(t *testing.T) (g *Graph, ca, cb ClassID, ma, mb MethodID, fa, fb FieldID) {
	t.Helper()
	g = New()
	ca = mustClass(t, g, SideA, ClassInfo{Name: "a", Obfuscated: true, Origin: true})
	cb = mustClass(t, g, SideB, ClassInfo{Name: "x", Obfuscated: true, Origin: true})
	ma = mustMethod(t, g, ca, MethodInfo{Name: "a", Desc: "(I)V", Obfuscated: true, Real: true})
	mb = mustMethod(t, g, cb, MethodInfo{Name: "b", Desc: "(I)V", Obfuscated: true, Real: true})
	fa = mustField(t, g, ca, FieldInfo{Name: "c", Desc: "I", Obfuscated: true, Real: true})
	fb = mustField(t, g, cb, FieldInfo{Name: "d", Desc: "I", Obfuscated: true, Real: true})
	require.NoError(t, g.Link())
	return g, ca, cb, ma, mb, fa, fb
}

func TestAddRejectsDuplicates(t *testing.T) {
	g := New()
	c := mustClass(t, g, SideA, ClassInfo{Name: "a"})
	_, err := g.AddClass(SideA, ClassInfo{Name: "a"})
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	_, err = g.AddClass(SideB, ClassInfo{Name: "a"})
	assert.NoError(t, err)

	mustMethod(t, g, c, MethodInfo{Name: "m", Desc: "()V"})
	_, err = g.AddMethod(c, MethodInfo{Name: "m", Desc: "()V"})
	assert.ErrorIs(t, err, ErrDuplicateSymbol)

	_, err = g.AddMethod(c, MethodInfo{Name: "n", Desc: "(V"})
	assert.Error(t, err)

	_, err = g.AddField(ClassID(42), FieldInfo{Name: "f", Desc: "I"})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestDerivedArgs(t *testing.T) {
	g := New()
	c := mustClass(t, g, SideA, ClassInfo{Name: "a"})
	inst := mustMethod(t, g, c, MethodInfo{Name: "m", Desc: "(JLa;I)V"})
	static := mustMethod(t, g, c, MethodInfo{Name: "s", Desc: "(DI)La;", Static: true})
	require.NoError(t, g.Link())

	args := g.Method(inst).Args
	require.Len(t, args, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{args[0].Slot, args[1].Slot, args[2].Slot})
	assert.Equal(t, c, args[1].Type)
	assert.Equal(t, NoClass, args[0].Type)

	s := g.Method(static)
	assert.Equal(t, 0, s.Args[0].Slot)
	assert.Equal(t, 2, s.Args[1].Slot)
	assert.Equal(t, c, s.Ret)
}

func TestArgOrVar(t *testing.T) {
	g := New()
	c := mustClass(t, g, SideA, ClassInfo{Name: "a"})
	m := mustMethod(t, g, c, MethodInfo{
		Name: "m",
		Desc: "(I)V",
		Vars: []VarInfo{
			{Slot: 2, Desc: "I", Start: 0, End: 4},
			{Slot: 2, Desc: "J", Start: 4, End: 9},
		},
	})
	require.NoError(t, g.Link())

	method := g.Method(m)
	assert.True(t, method.ArgOrVar(1, 7).Arg)
	assert.Equal(t, "I", method.ArgOrVar(2, 3).Desc)
	assert.Equal(t, "J", method.ArgOrVar(2, 4).Desc)
	assert.Nil(t, method.ArgOrVar(2, 9))
	assert.Nil(t, method.ArgOrVar(5, 0))
}

func TestLinkHierarchy(t *testing.T) {
	g := New()
	iface := mustClass(t, g, SideA, ClassInfo{Name: "i", Obfuscated: true, Origin: true})
	base := mustClass(t, g, SideA, ClassInfo{Name: "b", Obfuscated: true, Origin: true})
	impl := mustClass(t, g, SideA, ClassInfo{Name: "c", Obfuscated: true, Origin: true, Super: "b", Interfaces: []string{"i", "java/lang/Runnable"}})

	im := mustMethod(t, g, iface, MethodInfo{Name: "run", Desc: "()V"})
	bm := mustMethod(t, g, base, MethodInfo{Name: "run", Desc: "()V"})
	cm := mustMethod(t, g, impl, MethodInfo{Name: "run", Desc: "()V"})
	ctor := mustMethod(t, g, impl, MethodInfo{Name: "<init>", Desc: "()V"})
	mustMethod(t, g, base, MethodInfo{Name: "<init>", Desc: "()V"})
	require.NoError(t, g.Link())

	assert.Equal(t, base, g.Class(impl).Super)
	assert.Equal(t, []ClassID{iface}, g.Class(impl).Interfaces)
	assert.ElementsMatch(t, []ClassID{impl}, g.Children(base))
	assert.ElementsMatch(t, []MethodID{bm, im}, g.Method(cm).Parents)
	assert.Empty(t, g.Method(ctor).Parents)
	assert.Equal(t, []MethodID{cm}, g.Overriders(im))
	assert.Equal(t, []MethodID{im, bm, cm}, g.HierarchyMembers(bm))
}

func TestLinkExplicitParents(t *testing.T) {
	g := New()
	a := mustClass(t, g, SideA, ClassInfo{Name: "a"})
	b := mustClass(t, g, SideA, ClassInfo{Name: "b"})
	am := mustMethod(t, g, a, MethodInfo{Name: "x", Desc: "()V"})
	bm := mustMethod(t, g, b, MethodInfo{Name: "y", Desc: "()V", Parents: []MemberRef{{Owner: "a", Name: "x", Desc: "()V"}}})
	require.NoError(t, g.Link())
	assert.Equal(t, []MethodID{am}, g.Method(bm).Parents)

	_, err := g.AddMethod(b, MethodInfo{Name: "z", Desc: "()V", Parents: []MemberRef{{Owner: "q", Name: "x", Desc: "()V"}}})
	require.NoError(t, err)
	assert.ErrorIs(t, g.Link(), ErrUnknownSymbol)
}

func TestResolve(t *testing.T) {
	g := New()
	iface := mustClass(t, g, SideA, ClassInfo{Name: "i"})
	base := mustClass(t, g, SideA, ClassInfo{Name: "b", Interfaces: []string{"i"}})
	sub := mustClass(t, g, SideA, ClassInfo{Name: "s", Super: "b"})
	im := mustMethod(t, g, iface, MethodInfo{Name: "run", Desc: "()V"})
	bm := mustMethod(t, g, base, MethodInfo{Name: "go", Desc: "()V"})
	konst := mustField(t, g, iface, FieldInfo{Name: "K", Desc: "I", Static: true})
	bf := mustField(t, g, base, FieldInfo{Name: "f", Desc: "I"})
	require.NoError(t, g.Link())

	assert.Equal(t, bm, g.ResolveMethod(sub, "go", "()V", false))
	assert.Equal(t, im, g.ResolveMethod(sub, "run", "()V", false))
	assert.Equal(t, im, g.ResolveMethod(sub, "run", "()V", true))
	assert.Equal(t, NoMethod, g.ResolveMethod(sub, "run", "(I)V", false))
	assert.Equal(t, konst, g.ResolveField(sub, "K", "I"))
	assert.Equal(t, bf, g.ResolveField(sub, "f", "I"))
	assert.Equal(t, NoField, g.ResolveField(sub, "f", "J"))

	cls, dims := g.ResolveType(SideA, "[[Ls;")
	assert.Equal(t, sub, cls)
	assert.Equal(t, 2, dims)
	cls, _ = g.ResolveType(SideB, "Ls;")
	assert.Equal(t, NoClass, cls)
}

func TestMatchClasses(t *testing.T) {
	g, ca, cb, ma, mb, fa, fb := pairGraph(t)
	other := mustClass(t, g, SideB, ClassInfo{Name: "y", Obfuscated: true, Origin: true})
	require.NoError(t, g.Link())

	require.NoError(t, g.MatchClasses(ca, cb))
	assert.Equal(t, cb, g.ClassMatch(ca))
	assert.Equal(t, ca, g.ClassMatch(cb))

	require.NoError(t, g.MatchMethods(ma, mb))
	require.NoError(t, g.MatchFields(fb, fa))
	assert.Equal(t, fb, g.FieldMatch(fa))
	assert.True(t, g.IsFullyMatched(ca))

	require.NoError(t, g.MatchClasses(ca, other))
	assert.Equal(t, NoClass, g.ClassMatch(cb))
	assert.Equal(t, NoMethod, g.MethodMatch(ma))
	assert.Equal(t, NoMethod, g.MethodMatch(mb))
	assert.Equal(t, NoField, g.FieldMatch(fb))
	assert.False(t, g.IsFullyMatched(ca))

	assert.ErrorIs(t, g.MatchClasses(cb, other), ErrSameSide)
	assert.ErrorIs(t, g.MatchMethods(ma, mb), ErrOwnersNotMatched)
	assert.ErrorIs(t, g.MatchMethods(ma, ma), ErrSameSide)
}

func TestUnmatched(t *testing.T) {
	g, ca, cb, ma, mb, _, _ := pairGraph(t)

	classes, methods, fields := g.Unmatched(SideA)
	assert.Equal(t, []int{1, 0, 0}, []int{classes, methods, fields})

	require.NoError(t, g.MatchClasses(ca, cb))
	classes, methods, fields = g.Unmatched(SideA)
	assert.Equal(t, []int{0, 1, 1}, []int{classes, methods, fields})

	require.NoError(t, g.MatchMethods(ma, mb))
	classes, methods, fields = g.Unmatched(SideA)
	assert.Equal(t, []int{0, 0, 1}, []int{classes, methods, fields})
}

func TestUIDs(t *testing.T) {
	g, ca, _, ma, _, fa, _ := pairGraph(t)

	assert.Equal(t, -1, g.ClassUID(ca))
	require.NoError(t, g.SetClassUID(ca, 3))
	require.NoError(t, g.SetClassUID(ca, 3))
	assert.ErrorIs(t, g.SetClassUID(ca, 4), ErrUIDConflict)
	assert.Error(t, g.SetMethodUID(ma, 0))
	require.NoError(t, g.SetMethodUID(ma, 1))
	require.NoError(t, g.SetFieldUID(fa, 2))

	g.ClearUIDs()
	assert.Equal(t, -1, g.ClassUID(ca))
	assert.Equal(t, -1, g.MethodUID(ma))
	assert.Equal(t, -1, g.FieldUID(fa))
}

func TestSeedMatcher(t *testing.T) {
	g, ca, cb, ma, mb, fa, fb := pairGraph(t)

	var last float64
	seed := &SeedMatcher{
		Classes: []ClassPair{{A: "a", B: "x"}},
		Methods: []MemberPair{{A: MemberRef{Owner: "a", Name: "a", Desc: "(I)V"}, B: MemberRef{Owner: "x", Name: "b", Desc: "(I)V"}}},
		Fields:  []MemberPair{{A: MemberRef{Owner: "a", Name: "c", Desc: "I"}, B: MemberRef{Owner: "x", Name: "d", Desc: "I"}}},
	}
	require.NoError(t, seed.AutoMatch(g, func(p float64) { last = p }))
	assert.Equal(t, cb, g.ClassMatch(ca))
	assert.Equal(t, mb, g.MethodMatch(ma))
	assert.Equal(t, fb, g.FieldMatch(fa))
	assert.InDelta(t, 1.0, last, 1e-9)

	bad := &SeedMatcher{Classes: []ClassPair{{A: "a", B: "nope"}}}
	assert.ErrorIs(t, bad.AutoMatch(g, nil), ErrUnknownSymbol)
}
