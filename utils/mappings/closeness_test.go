package mappings

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// sampleBody touches every operand kind the comparator resolves: a local,
// a forward and a backward jump, a type, a field, a method, a library call,
// constants and a lambda.
func sampleBody(cls, fld, mth string) []insn.Insn {
	return []insn.Insn{
		label(1),
		line(10),
		load(1),
		push(5),
		op(insn.IADD),
		jump(insn.IFEQ, 2),
		newObj(cls),
		getField(cls, fld, "I"),
		invoke(insn.INVOKEVIRTUAL, cls, mth, "()V"),
		invoke(insn.INVOKEVIRTUAL, "java/io/PrintStream", "println", "(I)V"),
		ldc(insn.Constant{Kind: insn.ConstString, Str: "hi"}),
		ldc(insn.Constant{Kind: insn.ConstType, Str: "L" + cls + ";"}),
		lambda(cls, mth, "()V"),
		label(2),
		frame(),
		line(11),
		jump(insn.GOTO, 1),
		op(insn.RETURN),
	}
}

type closenessCase struct {
	g      *graph.Graph
	ma, mb graph.MethodID
	b, y   graph.ClassID
	f      *fixture
}

func closenessGraph(t *testing.T, mutateA, mutateB func([]insn.Insn) []insn.Insn) closenessCase {
	t.Helper()
	f := newFixture(t)
	a := f.class(graph.SideA, "a", "")
	b := f.class(graph.SideA, "b", "")
	x := f.class(graph.SideB, "x", "")
	y := f.class(graph.SideB, "y", "")
	f.field(b, "f", "I")
	f.field(y, "g", "I")
	f.method(b, "go", "()V", op(insn.RETURN))
	f.method(y, "do", "()V", op(insn.RETURN))

	bodyA, bodyB := sampleBody("b", "f", "go"), sampleBody("y", "g", "do")
	if mutateA != nil {
		bodyA = mutateA(bodyA)
	}
	if mutateB != nil {
		bodyB = mutateB(bodyB)
	}
	ma := f.method(a, "m", "(I)V", bodyA...)
	mb := f.method(x, "n", "(I)V", bodyB...)
	return closenessCase{g: f.link(), ma: ma, mb: mb, b: b, y: y, f: f}
}

func TestCloseEnoughIdentical(t *testing.T) {
	c := closenessGraph(t, nil, nil)

	ok, err := CloseEnough(c.g, c.ma, c.mb)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CloseEnough(c.g, c.mb, c.ma)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCloseEnoughIgnoresStructuralMarkers(t *testing.T) {
	c := closenessGraph(t, nil, func(body []insn.Insn) []insn.Insn {
		body = slices.Insert(body, 3, frame())
		return slices.Insert(body, 0, label(7))
	})

	ok, err := CloseEnough(c.g, c.ma, c.mb)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCloseEnoughBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]insn.Insn) []insn.Insn
	}{
		{"int operand", func(b []insn.Insn) []insn.Insn { b[3].Operand = 6; return b }},
		{"line number", func(b []insn.Insn) []insn.Insn { b[1].Line = 12; return b }},
		{"jump direction", func(b []insn.Insn) []insn.Insn { b[5].Label = 1; return b }},
		{"opcode", func(b []insn.Insn) []insn.Insn { b[4].Op = insn.Opcode(100); return b }},
		{"interface flag", func(b []insn.Insn) []insn.Insn { b[8].Itf = true; return b }},
		{"string constant", func(b []insn.Insn) []insn.Insn {
			b[10].Const = &insn.Constant{Kind: insn.ConstString, Str: "ho"}
			return b
		}},
		{"constant kind", func(b []insn.Insn) []insn.Insn {
			b[11].Const = &insn.Constant{Kind: insn.ConstString, Str: "Ly;"}
			return b
		}},
		{"type constant dimensions", func(b []insn.Insn) []insn.Insn {
			b[11].Const = &insn.Constant{Kind: insn.ConstType, Str: "[Ly;"}
			return b
		}},
		{"field owner outside graph", func(b []insn.Insn) []insn.Insn { b[7].Owner = "java/lang/System"; return b }},
		{"unresolved field", func(b []insn.Insn) []insn.Insn { b[7].Name = "missing"; return b }},
		{"lambda implementation tag", func(b []insn.Insn) []insn.Insn {
			h := *b[12].BsmArgs[1].Handle
			h.Tag = insn.HInvokeVirtual
			args := slices.Clone(b[12].BsmArgs)
			args[1] = insn.Constant{Kind: insn.ConstHandle, Handle: &h}
			b[12].BsmArgs = args
			return b
		}},
		{"extra instruction", func(b []insn.Insn) []insn.Insn { return append(b, op(insn.NOP)) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := closenessGraph(t, nil, tc.mutate)

			ok, err := CloseEnough(c.g, c.ma, c.mb)
			require.NoError(t, err)
			assert.False(t, ok)

			swapped, err := CloseEnough(c.g, c.mb, c.ma)
			require.NoError(t, err)
			assert.Equal(t, ok, swapped, "verdict must not depend on argument order")
		})
	}
}

func TestCloseEnoughUnresolvedOwners(t *testing.T) {
	replace := func(i int, in insn.Insn) func([]insn.Insn) []insn.Insn {
		return func(b []insn.Insn) []insn.Insn { b[i] = in; return b }
	}
	tests := []struct {
		name             string
		mutateA, mutateB func([]insn.Insn) []insn.Insn
	}{
		{"library method name", nil, replace(9, invoke(insn.INVOKEVIRTUAL, "java/io/PrintStream", "print", "(I)V"))},
		{"library method owner", nil, replace(9, invoke(insn.INVOKEVIRTUAL, "java/io/Writer", "write", "(I)V"))},
		{"library field", replace(7, getField("java/awt/Dimension", "width", "I")), replace(7, getField("java/awt/Point", "x", "I"))},
		{"library type", replace(6, newObj("java/util/ArrayList")), replace(6, newObj("java/util/HashMap"))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := closenessGraph(t, tc.mutateA, tc.mutateB)

			ok, err := CloseEnough(c.g, c.ma, c.mb)
			require.NoError(t, err)
			assert.True(t, ok, "owners missing from the graph on both sides are equal")

			ok, err = CloseEnough(c.g, c.mb, c.ma)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestCloseEnoughFollowsMatches(t *testing.T) {
	c := closenessGraph(t, nil, nil)
	z := c.f.class(graph.SideB, "z", "")
	c.f.link()

	c.f.matchClasses(c.b, c.y)
	ok, err := CloseEnough(c.g, c.ma, c.mb)
	require.NoError(t, err)
	assert.True(t, ok)

	c.f.matchClasses(c.b, z)
	ok, err = CloseEnough(c.g, c.ma, c.mb)
	require.NoError(t, err)
	assert.False(t, ok, "referenced class is matched elsewhere")
}

func TestCloseEnoughUnsupportedBootstrap(t *testing.T) {
	concat := func(b []insn.Insn) []insn.Insn {
		b[12] = insn.Insn{
			Kind: insn.KindInvokeDynamic,
			Op:   insn.INVOKEDYNAMIC,
			Name: "makeConcatWithConstants",
			Desc: "(I)Ljava/lang/String;",
			Bsm: &insn.Handle{
				Tag:   insn.HInvokeStatic,
				Owner: "java/lang/invoke/StringConcatFactory",
				Name:  "makeConcatWithConstants",
				Desc:  "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/String;[Ljava/lang/Object;)Ljava/lang/invoke/CallSite;",
			},
		}
		return b
	}
	c := closenessGraph(t, concat, concat)

	ok, err := CloseEnough(c.g, c.ma, c.mb)
	assert.ErrorIs(t, err, ErrUnsupportedBootstrap)
	assert.False(t, ok)
}

func TestCloseEnoughRequiresRealMethods(t *testing.T) {
	f := newFixture(t)
	a := f.class(graph.SideA, "a", "")
	x := f.class(graph.SideB, "x", "")
	ma := f.abstract(a, "m", "()V")
	mb := f.abstract(x, "n", "()V")
	g := f.link()

	ok, err := CloseEnough(g, ma, mb)
	require.NoError(t, err)
	assert.False(t, ok)
}
