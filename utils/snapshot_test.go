package utils

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// snapshotGraph builds a small matched graph with UIDs, a hierarchy and a
// method body.
func snapshotGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()

	base, err := g.AddClass(graph.SideA, graph.ClassInfo{Name: "a", Obfuscated: true, Origin: true, Interfaces: []string{"java/lang/Runnable"}})
	require.NoError(t, err)
	sub, err := g.AddClass(graph.SideA, graph.ClassInfo{Name: "b", Obfuscated: true, Origin: true, Super: "a", MappedName: "net/Sub"})
	require.NoError(t, err)
	other, err := g.AddClass(graph.SideB, graph.ClassInfo{Name: "x", Obfuscated: true, Origin: true})
	require.NoError(t, err)

	body := []insn.Insn{
		{Kind: insn.KindLabel, Label: 1},
		{Kind: insn.KindLine, Line: 12, Label: 1},
		{Kind: insn.KindVar, Op: insn.ILOAD, Var: 1},
		{Kind: insn.KindLdc, Op: insn.LDC, Const: &insn.Constant{Kind: insn.ConstString, Str: "hi"}},
		{Kind: insn.KindMethod, Op: insn.INVOKEVIRTUAL, Owner: "a", Name: "c", Desc: "(I)V"},
		{Kind: insn.KindPlain, Op: insn.RETURN},
	}
	am, err := g.AddMethod(base, graph.MethodInfo{
		Name: "c", Desc: "(I)V", Obfuscated: true, Real: true, Insns: body,
		Vars: []graph.VarInfo{{Slot: 2, Desc: "La;", Start: 1, End: 5}},
	})
	require.NoError(t, err)
	bm, err := g.AddMethod(sub, graph.MethodInfo{Name: "c", Desc: "(I)V", Obfuscated: true, Real: true})
	require.NoError(t, err)
	xm, err := g.AddMethod(other, graph.MethodInfo{Name: "y", Desc: "(I)V", Obfuscated: true, Real: true, Insns: body})
	require.NoError(t, err)
	af, err := g.AddField(base, graph.FieldInfo{Name: "d", Desc: "J", Static: true, Obfuscated: true, Real: true})
	require.NoError(t, err)
	xf, err := g.AddField(other, graph.FieldInfo{Name: "z", Desc: "J", Static: true, Obfuscated: true, Real: true})
	require.NoError(t, err)
	require.NoError(t, g.Link())

	require.NoError(t, g.MatchClasses(base, other))
	require.NoError(t, g.MatchMethods(am, xm))
	require.NoError(t, g.MatchFields(af, xf))
	require.NoError(t, g.SetClassUID(base, 1))
	require.NoError(t, g.SetClassUID(other, 1))
	require.NoError(t, g.SetMethodUID(am, 4))
	require.NoError(t, g.SetMethodUID(bm, 4))
	require.NoError(t, g.SetMethodUID(xm, 4))
	require.NoError(t, g.SetFieldUID(af, 2))
	return g
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, name := range []string{"graph.json", "graph.json.gz"} {
		t.Run(name, func(t *testing.T) {
			g := snapshotGraph(t)
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveSnapshot(path, g))

			loaded, seed, err := LoadSnapshot(path, NewLogger(LevelError, io.Discard))
			require.NoError(t, err)
			assert.Equal(t, 3, seed.Len())
			assert.Equal(t, graph.NoClass, loaded.ClassMatch(0), "matches are replayed by the seed, not on load")

			require.NoError(t, seed.AutoMatch(loaded, nil))
			if diff := cmp.Diff(NewSnapshot(g), NewSnapshot(loaded)); diff != "" {
				t.Errorf("snapshot changed across save and load (-saved +loaded):\n%s", diff)
			}

			b := loaded.ClassByName(graph.SideA, "b")
			require.NotEqual(t, graph.NoClass, b)
			assert.Equal(t, loaded.ClassByName(graph.SideA, "a"), loaded.Class(b).Super)
			assert.Equal(t, "net/Sub", loaded.Class(b).MappedName)
			require.Len(t, loaded.Method(loaded.Class(b).Methods[0]).Parents, 1)
		})
	}
}

func TestSnapshotBuildErrors(t *testing.T) {
	dup := &Snapshot{Classes: []ClassRecord{{Side: graph.SideA, Name: "a"}, {Side: graph.SideA, Name: "a"}}}
	_, err := dup.Build()
	assert.ErrorIs(t, err, graph.ErrDuplicateSymbol)

	parent := &Snapshot{Classes: []ClassRecord{{
		Side: graph.SideA, Name: "a",
		Methods: []MethodRecord{{Name: "m", Desc: "()V", Parents: []graph.MemberRef{{Owner: "q", Name: "m", Desc: "()V"}}}},
	}}}
	_, err = parent.Build()
	assert.ErrorIs(t, err, graph.ErrUnknownSymbol)
}

func TestLoadSnapshotMissing(t *testing.T) {
	_, _, err := LoadSnapshot(filepath.Join(t.TempDir(), "none.json"), NewLogger(LevelError, io.Discard))
	assert.Error(t, err)
}
