package mappings

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

type fixture struct {
	t *testing.T
	g *graph.Graph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, g: graph.New()}
}

func (f *fixture) class(side graph.Side, name string, super string, ifaces ...string) graph.ClassID {
	f.t.Helper()
	id, err := f.g.AddClass(side, graph.ClassInfo{Name: name, Obfuscated: true, Origin: true, Super: super, Interfaces: ifaces})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) method(owner graph.ClassID, name, desc string, body ...insn.Insn) graph.MethodID {
	f.t.Helper()
	id, err := f.g.AddMethod(owner, graph.MethodInfo{Name: name, Desc: desc, Obfuscated: true, Real: true, Insns: body})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) abstract(owner graph.ClassID, name, desc string) graph.MethodID {
	f.t.Helper()
	id, err := f.g.AddMethod(owner, graph.MethodInfo{Name: name, Desc: desc, Obfuscated: true})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) field(owner graph.ClassID, name, desc string) graph.FieldID {
	f.t.Helper()
	id, err := f.g.AddField(owner, graph.FieldInfo{Name: name, Desc: desc, Obfuscated: true, Real: true})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) link() *graph.Graph {
	f.t.Helper()
	require.NoError(f.t, f.g.Link())
	return f.g
}

func (f *fixture) matchClasses(a, b graph.ClassID) {
	f.t.Helper()
	require.NoError(f.t, f.g.MatchClasses(a, b))
}

func (f *fixture) matchMethods(a, b graph.MethodID) {
	f.t.Helper()
	require.NoError(f.t, f.g.MatchMethods(a, b))
}

func (f *fixture) matcher(auto AutoMatcher) *Matcher {
	return NewMatcher(f.g, utils.NewParallelRunner(4), auto, utils.NewLogger(utils.LevelDebug, io.Discard), nil)
}

func line(n int) insn.Insn {
	return insn.Insn{Kind: insn.KindLine, Op: insn.NoOp, Line: n}
}

func label(l int) insn.Insn {
	return insn.Insn{Kind: insn.KindLabel, Op: insn.NoOp, Label: insn.Label(l)}
}

func frame() insn.Insn {
	return insn.Insn{Kind: insn.KindFrame, Op: insn.NoOp}
}

func op(o insn.Opcode) insn.Insn {
	return insn.Insn{Kind: insn.KindPlain, Op: o}
}

func push(v int) insn.Insn {
	return insn.Insn{Kind: insn.KindInt, Op: insn.BIPUSH, Operand: v}
}

func load(slot int) insn.Insn {
	return insn.Insn{Kind: insn.KindVar, Op: insn.ILOAD, Var: slot}
}

func jump(o insn.Opcode, l int) insn.Insn {
	return insn.Insn{Kind: insn.KindJump, Op: o, Label: insn.Label(l)}
}

func newObj(name string) insn.Insn {
	return insn.Insn{Kind: insn.KindType, Op: insn.NEW, Desc: name}
}

func getField(owner, name, desc string) insn.Insn {
	return insn.Insn{Kind: insn.KindField, Op: insn.GETFIELD, Owner: owner, Name: name, Desc: desc}
}

func invoke(o insn.Opcode, owner, name, desc string) insn.Insn {
	return insn.Insn{Kind: insn.KindMethod, Op: o, Owner: owner, Name: name, Desc: desc, Itf: o == insn.INVOKEINTERFACE}
}

func ldc(c insn.Constant) insn.Insn {
	return insn.Insn{Kind: insn.KindLdc, Op: insn.LDC, Const: &c}
}

func lambda(owner, name, desc string) insn.Insn {
	return insn.Insn{
		Kind: insn.KindInvokeDynamic,
		Op:   insn.INVOKEDYNAMIC,
		Name: "run",
		Desc: "()Ljava/lang/Runnable;",
		Bsm: &insn.Handle{
			Tag:   insn.HInvokeStatic,
			Owner: "java/lang/invoke/LambdaMetafactory",
			Name:  "metafactory",
			Desc:  "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;",
		},
		BsmArgs: []insn.Constant{
			{Kind: insn.ConstType, Str: "()V"},
			{Kind: insn.ConstHandle, Handle: &insn.Handle{Tag: insn.HInvokeStatic, Owner: owner, Name: name, Desc: desc}},
			{Kind: insn.ConstType, Str: "()V"},
		},
	}
}
