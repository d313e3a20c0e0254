package mappings

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// methodSystem is a run of unmatched methods on each side, bounded by
// matched anchor methods or the ends of the class.
type methodSystem struct {
	methods      []graph.MethodID
	matchMethods []graph.MethodID
}

// runLineNumberMatch pairs unmatched methods inside corresponding systems
// when their shapes agree and their line number sequences are identical.
func runLineNumberMatch(ctx context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error) {
	g := m.g
	classes := m.candidates(func(c graph.ClassID) bool {
		return !g.IsFullyMatched(c) && len(g.Class(c).Methods) > 0
	})
	p := newProposals()
	var (
		mu     sync.Mutex
		misses []string
	)

	err := m.forEachClass(ctx, classes, progress, func(c graph.ClassID) error {
		systems, ok := m.methodSystems(c)
		if !ok {
			return nil
		}
		for _, sys := range systems {
			missed, err := m.matchSystem(p, sys)
			if err != nil {
				return err
			}
			if len(missed) > 0 {
				mu.Lock()
				misses = append(misses, missed...)
				mu.Unlock()
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := m.apply(LineNumberMatch, p)
	res.Misses = misses
	return res, nil
}

// methodSystems splits the methods of c and of its match into systems.
// Matched pairs must appear in the same relative order on both sides;
// otherwise the class is skipped.
func (m *Matcher) methodSystems(c graph.ClassID) ([]methodSystem, bool) {
	g := m.g
	methods := g.Class(c).Methods
	matchMethods := g.Class(g.ClassMatch(c)).Methods

	var (
		systems []methodSystem
		current *methodSystem
	)
	j := -1
	for _, id := range methods {
		partner := g.MethodMatch(id)
		if partner == graph.NoMethod {
			if current == nil {
				current = &methodSystem{}
			}
			current.methods = append(current.methods, id)
			continue
		}

		for {
			j++
			if j >= len(matchMethods) {
				m.log.Info("matched methods out of order", "class", g.Class(c).Name, "method", g.MethodString(id))
				return nil, false
			}
			other := matchMethods[j]
			if other == partner {
				break
			}
			if g.MethodMatch(other) != graph.NoMethod {
				m.log.Info("matched methods out of order", "class", g.Class(c).Name, "method", g.MethodString(id), "found", g.MethodString(other))
				return nil, false
			}
			if current != nil {
				current.matchMethods = append(current.matchMethods, other)
			}
		}
		if current != nil {
			systems = append(systems, *current)
			current = nil
		}
	}

	if current != nil {
		for j++; j < len(matchMethods); j++ {
			other := matchMethods[j]
			if g.MethodMatch(other) != graph.NoMethod {
				m.log.Info("matched methods out of order", "class", g.Class(c).Name, "found", g.MethodString(other))
				return nil, false
			}
			current.matchMethods = append(current.matchMethods, other)
		}
		systems = append(systems, *current)
	}
	return systems, true
}

// matchSystem pairs methods of one system in order: once a method takes a
// candidate, later methods only consider candidates after it.
func (m *Matcher) matchSystem(p *proposals, sys methodSystem) (misses []string, err error) {
	g := m.g
	end := 0

next:
	for _, id := range sys.methods {
		method := g.Method(id)
		body := method.Body()

		for k := end; k < len(sys.matchMethods); k++ {
			cand := sys.matchMethods[k]
			other := g.Method(cand)
			if len(other.Args) != len(method.Args) || !m.returnsCompatible(method, other) {
				continue
			}
			otherBody := other.Body()
			if otherBody.Len() != body.Len() {
				continue
			}
			lines, same, diff := sameLines(body, otherBody)
			if diff >= 0 {
				m.log.Warn("line number candidate differs in instructions",
					"method", g.MethodString(id), "match", g.MethodString(cand),
					"index", diff, "a", body.Insns[diff].String(), "b", otherBody.Insns[diff].String())
				continue
			}
			if !same {
				continue
			}
			if lines == 0 {
				m.log.Debug("matching without line information", "method", g.MethodString(id), "match", g.MethodString(cand))
			}

			if len(method.Parents) == 1 {
				if err := m.proposeParents(p, method, other); err != nil {
					return nil, err
				}
			}
			m.proposeMethod(p, id, cand)
			end = k + 1
			continue next
		}

		m.log.Info("can't find a match", "method", g.MethodString(id))
		misses = append(misses, g.MethodString(id))
	}
	return misses, nil
}

// proposeParents follows a line number match up to the single parent each
// method overrides.
func (m *Matcher) proposeParents(p *proposals, method, other *graph.Method) error {
	g := m.g
	if len(other.Parents) != 1 {
		return fmt.Errorf("%w: %s has one parent, %s has %d", ErrInconsistent,
			g.MethodString(method.ID), g.MethodString(other.ID), len(other.Parents))
	}
	parent, matchParent := method.Parents[0], other.Parents[0]
	pc, mpc := g.Method(parent).Owner, g.Method(matchParent).Owner

	switch partner := g.ClassMatch(pc); partner {
	case graph.NoClass:
		m.proposeClass(p, pc, mpc)
	case mpc:
	default:
		return fmt.Errorf("%w: parent class %s is matched to %s, expected %s", ErrInconsistent,
			g.Class(pc).Name, g.Class(partner).Name, g.Class(mpc).Name)
	}
	if g.Class(pc).Origin {
		m.proposeMethod(p, parent, matchParent)
	}
	return nil
}

// returnsCompatible rejects pairs whose return types are already known to
// differ.
func (m *Matcher) returnsCompatible(a, b *graph.Method) bool {
	g := m.g
	elemA, dimsA := insn.ElementType(a.RetDesc)
	elemB, dimsB := insn.ElementType(b.RetDesc)
	if dimsA != dimsB {
		return false
	}
	_, objA := insn.ClassName(elemA)
	_, objB := insn.ClassName(elemB)
	if !objA || !objB {
		return elemA == elemB
	}
	if a.Ret != graph.NoClass {
		if partner := g.ClassMatch(a.Ret); partner != graph.NoClass && partner != b.Ret {
			return false
		}
	}
	if b.Ret != graph.NoClass {
		if partner := g.ClassMatch(b.Ret); partner != graph.NoClass && partner != a.Ret {
			return false
		}
	}
	return true
}

// sameLines compares the line markers of two bodies of equal length. diff
// is the index of the first instruction whose kind or opcode differs before
// any line does, -1 if there is none.
func sameLines(a, b *insn.Body) (lines int, same bool, diff int) {
	for i := range a.Insns {
		x, y := &a.Insns[i], &b.Insns[i]
		if x.Kind != y.Kind || x.Op != y.Op {
			return lines, false, i
		}
		if x.Kind == insn.KindLine {
			lines++
			if x.Line != y.Line {
				return lines, false, -1
			}
		}
	}
	return lines, true, -1
}
