package mappings

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

var ErrUnsupportedBootstrap = errors.New("unsupported invokedynamic bootstrap")

// CloseEnough reports whether the bodies of a and b agree instruction by
// instruction once labels and frames are dropped, with every symbolic
// operand resolved on its own side and checked against the oracle. Both
// methods must be real. An invokedynamic site not backed by the lambda
// metafactory fails with ErrUnsupportedBootstrap.
func CloseEnough(g *graph.Graph, a, b graph.MethodID) (bool, error) {
	ma, mb := g.Method(a), g.Method(b)
	if !ma.Real || !mb.Real {
		return false, nil
	}
	c := comparator{
		g:     g,
		ma:    ma,
		mb:    mb,
		ba:    ma.Body(),
		bb:    mb.Body(),
		sideA: g.MethodSide(a),
		sideB: g.MethodSide(b),
	}
	if c.ba.Len() != c.bb.Len() {
		return false, nil
	}
	for i := range c.ba.Insns {
		ok, err := c.match(i)
		if err != nil {
			return false, fmt.Errorf("%s vs %s at %d: %w", g.MethodString(a), g.MethodString(b), i, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

type comparator struct {
	g            *graph.Graph
	ma, mb       *graph.Method
	ba, bb       *insn.Body
	sideA, sideB graph.Side
}

func (c *comparator) match(i int) (bool, error) {
	x, y := &c.ba.Insns[i], &c.bb.Insns[i]
	if x.Op != y.Op || x.Kind != y.Kind {
		return false, nil
	}

	switch x.Kind {
	case insn.KindInt:
		return x.Operand == y.Operand, nil

	case insn.KindVar:
		return c.varsMatch(i, x, y), nil

	case insn.KindIinc:
		return x.Operand == y.Operand && c.varsMatch(i, x, y), nil

	case insn.KindType:
		return c.typesMatch(insn.RefDesc(x.Desc), insn.RefDesc(y.Desc)), nil

	case insn.KindMultiANewArray:
		return x.Dims == y.Dims && c.typesMatch(insn.RefDesc(x.Desc), insn.RefDesc(y.Desc)), nil

	case insn.KindField:
		return c.fieldsMatch(x, y), nil

	case insn.KindMethod:
		return c.methodsMatch(x.Owner, x.Name, x.Desc, x.Itf, y.Owner, y.Name, y.Desc, y.Itf), nil

	case insn.KindInvokeDynamic:
		return c.indyMatch(x, y)

	case insn.KindJump:
		return cmp.Compare(c.ba.Target(x.Label), i) == cmp.Compare(c.bb.Target(y.Label), i), nil

	case insn.KindLdc:
		return c.constsMatch(x.Const, y.Const), nil

	case insn.KindTableSwitch:
		return x.Min == y.Min && x.Max == y.Max, nil

	case insn.KindLookupSwitch:
		return slices.Equal(x.Keys, y.Keys), nil

	case insn.KindLine:
		return x.Line == y.Line, nil
	}
	return true, nil
}

// varsMatch compares the variables behind two slots. Slots without a
// declared argument or local are not discriminating.
func (c *comparator) varsMatch(i int, x, y *insn.Insn) bool {
	va := c.ma.ArgOrVar(x.Var, c.ba.Source(i))
	vb := c.mb.ArgOrVar(y.Var, c.bb.Source(i))
	if va == nil || vb == nil {
		return true
	}
	return c.g.MayEqualVars(va, vb)
}

func (c *comparator) typesMatch(descA, descB string) bool {
	return c.g.MayEqualTypes(c.sideA, descA, c.sideB, descB)
}

// owners resolves the owners of two member references. References whose
// owners are missing from the graph on both sides carry no information and
// count as equal; an owner missing on one side only never matches.
func (c *comparator) owners(ownerA, ownerB string) (clsA, clsB graph.ClassID, ok, resolved bool) {
	if strings.HasPrefix(ownerA, "[") || strings.HasPrefix(ownerB, "[") {
		return graph.NoClass, graph.NoClass, c.typesMatch(ownerA, ownerB), false
	}
	clsA = c.g.ClassByName(c.sideA, ownerA)
	clsB = c.g.ClassByName(c.sideB, ownerB)
	if clsA == graph.NoClass || clsB == graph.NoClass {
		return clsA, clsB, clsA == clsB, false
	}
	return clsA, clsB, true, true
}

func (c *comparator) fieldsMatch(x, y *insn.Insn) bool {
	clsA, clsB, ok, resolved := c.owners(x.Owner, y.Owner)
	if !ok {
		return false
	}
	if !resolved {
		return true
	}
	fa := c.g.ResolveField(clsA, x.Name, x.Desc)
	fb := c.g.ResolveField(clsB, y.Name, y.Desc)
	return c.g.MayEqualFieldsNullable(fa, fb)
}

func (c *comparator) methodsMatch(ownerA, nameA, descA string, itfA bool, ownerB, nameB, descB string, itfB bool) bool {
	if itfA != itfB {
		return false
	}
	clsA, clsB, ok, resolved := c.owners(ownerA, ownerB)
	if !ok {
		return false
	}
	if !resolved {
		return true
	}
	ma := c.g.ResolveMethod(clsA, nameA, descA, itfA)
	mb := c.g.ResolveMethod(clsB, nameB, descB, itfB)
	return c.g.MayEqualMethodsNullable(ma, mb)
}

func (c *comparator) indyMatch(x, y *insn.Insn) (bool, error) {
	if x.Bsm == nil || y.Bsm == nil {
		return false, fmt.Errorf("%w: missing bootstrap handle", ErrUnsupportedBootstrap)
	}
	if *x.Bsm != *y.Bsm {
		return false, nil
	}
	if !x.Bsm.IsLambdaMetafactory() {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedBootstrap, x.Bsm)
	}
	implA, err := lambdaImpl(x)
	if err != nil {
		return false, err
	}
	implB, err := lambdaImpl(y)
	if err != nil {
		return false, err
	}
	if implA.Tag != implB.Tag {
		return false, nil
	}
	if !implA.InvokesMethod() {
		return false, fmt.Errorf("%w: unexpected implementation tag %d", ErrUnsupportedBootstrap, implA.Tag)
	}
	return c.methodsMatch(implA.Owner, implA.Name, implA.Desc, implA.Itf, implB.Owner, implB.Name, implB.Desc, implB.Itf), nil
}

// lambdaImpl returns the implementation handle of a metafactory call site,
// its second bootstrap argument.
func lambdaImpl(in *insn.Insn) (*insn.Handle, error) {
	if len(in.BsmArgs) < 2 || in.BsmArgs[1].Kind != insn.ConstHandle || in.BsmArgs[1].Handle == nil {
		return nil, fmt.Errorf("%w: metafactory call without implementation handle", ErrUnsupportedBootstrap)
	}
	return in.BsmArgs[1].Handle, nil
}

func (c *comparator) constsMatch(a, b *insn.Constant) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind != insn.ConstType {
		return a.Equal(*b)
	}
	sortA, sortB := insn.TypeSort(a.Str), insn.TypeSort(b.Str)
	if sortA != sortB {
		return false
	}
	switch sortA {
	case insn.SortObject, insn.SortArray:
		return c.typesMatch(a.Str, b.Str)
	case insn.SortMethod:
		return true
	}
	return a.Str == b.Str
}
