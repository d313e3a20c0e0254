package mappings

import (
	"context"
	"strings"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// runUsageMatch walks matched method pairs whose bodies agree and proposes
// the classes, methods and fields the two bodies reference at the same
// positions.
func runUsageMatch(ctx context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error) {
	g := m.g
	p := newProposals()

	err := m.forEachClass(ctx, m.candidates(nil), progress, func(c graph.ClassID) error {
		cls := g.Class(c)
		for _, id := range cls.Methods {
			partner := g.MethodMatch(id)
			if !g.Method(id).Real || partner == graph.NoMethod {
				continue
			}
			ok, err := CloseEnough(g, id, partner)
			if err != nil {
				return err
			}
			if !ok {
				m.log.Info("method contents mismatch", "method", g.MethodString(id), "match", g.MethodString(partner))
				continue
			}
			if err := m.usages(p, g.Method(id), g.Method(partner)); err != nil {
				return err
			}
		}

		for _, id := range cls.Fields {
			partner := g.FieldMatch(id)
			if !g.Field(id).Real || partner == graph.NoField {
				continue
			}
			m.proposeClass(p, g.Field(id).Type, g.Field(partner).Type)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return m.apply(UsageMatch, p), nil
}

// usages proposes matches for everything a and b reference. The bodies are
// known to be close, so kinds and opcodes agree pairwise.
func (m *Matcher) usages(p *proposals, a, b *graph.Method) error {
	g := m.g
	sideA, sideB := g.Class(a.Owner).Side, g.Class(b.Owner).Side

	if len(a.Args) == len(b.Args) {
		for i := range a.Args {
			m.proposeClass(p, a.Args[i].Type, b.Args[i].Type)
		}
	}

	ba, bb := a.Body(), b.Body()
	for i := range ba.Insns {
		x, y := &ba.Insns[i], &bb.Insns[i]
		switch x.Kind {
		case insn.KindType:
			ca, _ := g.ResolveType(sideA, insn.RefDesc(x.Desc))
			cb, _ := g.ResolveType(sideB, insn.RefDesc(y.Desc))
			m.proposeClass(p, ca, cb)

		case insn.KindField:
			ca, cb, ok := m.usedOwners(sideA, x.Owner, sideB, y.Owner)
			if !ok {
				continue
			}
			m.proposeClass(p, ca, cb)
			m.proposeField(p, g.ResolveField(ca, x.Name, x.Desc), g.ResolveField(cb, y.Name, y.Desc))

		case insn.KindMethod:
			if err := m.usedMethod(p, sideA, x.Owner, x.Name, x.Desc, x.Itf, sideB, y.Owner, y.Name, y.Desc, y.Itf); err != nil {
				return err
			}

		case insn.KindInvokeDynamic:
			implA, errA := lambdaImpl(x)
			implB, errB := lambdaImpl(y)
			if errA != nil || errB != nil {
				continue
			}
			if err := m.usedMethod(p, sideA, implA.Owner, implA.Name, implA.Desc, implA.Itf, sideB, implB.Owner, implB.Name, implB.Desc, implB.Itf); err != nil {
				return err
			}

		case insn.KindLdc:
			if x.Const == nil || y.Const == nil || x.Const.Kind != insn.ConstType {
				continue
			}
			switch insn.TypeSort(x.Const.Str) {
			case insn.SortObject, insn.SortArray:
				ca, _ := g.ResolveType(sideA, x.Const.Str)
				cb, _ := g.ResolveType(sideB, y.Const.Str)
				m.proposeClass(p, ca, cb)
			}
		}
	}
	return nil
}

// usedOwners resolves the owners of a member reference on both sides. Array
// owners and owners missing from the graph are skipped, as are owners that
// are not obfuscated.
func (m *Matcher) usedOwners(sideA graph.Side, ownerA string, sideB graph.Side, ownerB string) (graph.ClassID, graph.ClassID, bool) {
	if strings.HasPrefix(ownerA, "[") || strings.HasPrefix(ownerB, "[") {
		return graph.NoClass, graph.NoClass, false
	}
	ca, cb := m.g.ClassByName(sideA, ownerA), m.g.ClassByName(sideB, ownerB)
	if ca == graph.NoClass || cb == graph.NoClass || !m.g.Class(ca).Obfuscated {
		return graph.NoClass, graph.NoClass, false
	}
	return ca, cb, true
}

func (m *Matcher) usedMethod(p *proposals, sideA graph.Side, ownerA, nameA, descA string, itfA bool, sideB graph.Side, ownerB, nameB, descB string, itfB bool) error {
	g := m.g
	ca, cb, ok := m.usedOwners(sideA, ownerA, sideB, ownerB)
	if !ok {
		return nil
	}
	m.proposeClass(p, ca, cb)

	ma := g.ResolveMethod(ca, nameA, descA, itfA)
	mb := g.ResolveMethod(cb, nameB, descB, itfB)
	if ma == graph.NoMethod || mb == graph.NoMethod || g.MethodMatch(ma) == mb || p.methods.Has(ma, mb) {
		return nil
	}
	if !g.Method(ma).Real || !g.Method(mb).Real {
		m.proposeMethod(p, ma, mb)
		return nil
	}
	same, err := CloseEnough(g, ma, mb)
	if err != nil {
		return err
	}
	if !same {
		m.log.Debug("method contents mismatch", "method", g.MethodString(ma), "match", g.MethodString(mb))
		return nil
	}
	m.proposeMethod(p, ma, mb)
	return nil
}
