package mappings

import (
	"context"
	"fmt"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

// runHierarchyMethodMatch ties together the declaring classes of the one
// unmatched parent a matched method pair overrides on each side.
func runHierarchyMethodMatch(ctx context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error) {
	g := m.g
	classes := m.candidates(func(c graph.ClassID) bool {
		return len(g.Class(c).Methods) > 0
	})
	p := newProposals()

	err := m.forEachClass(ctx, classes, progress, func(c graph.ClassID) error {
		for _, id := range g.Class(c).Methods {
			partner := g.MethodMatch(id)
			if partner == graph.NoMethod {
				continue
			}
			method, other := g.Method(id), g.Method(partner)
			if len(method.Parents) != len(other.Parents) {
				// Inheritance can be stripped on one side.
				m.log.Debug("parent size difference", "method", g.MethodString(id), "match", g.MethodString(partner))
				continue
			}

			parents := unmatchedParents(g, method)
			matchParents := unmatchedParents(g, other)
			if len(parents) != 1 || len(matchParents) != 1 {
				continue
			}
			pc := g.Method(parents[0]).Owner
			mpc := g.Method(matchParents[0]).Owner

			switch partner := g.ClassMatch(pc); partner {
			case graph.NoClass:
				m.log.Debug("matched class from method hierarchy", "a", g.Class(pc).Name, "b", g.Class(mpc).Name, "method", g.MethodString(id))
				m.proposeClass(p, pc, mpc)
			case mpc:
			default:
				return fmt.Errorf("%w: parent class %s of %s is matched to %s, expected %s", ErrInconsistent,
					g.Class(pc).Name, g.MethodString(id), g.Class(partner).Name, g.Class(mpc).Name)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return m.apply(HierarchyMethodMatch, p), nil
}

func unmatchedParents(g *graph.Graph, method *graph.Method) []graph.MethodID {
	var out []graph.MethodID
	for _, parent := range method.Parents {
		if g.MethodMatch(parent) == graph.NoMethod {
			out = append(out, parent)
		}
	}
	return out
}
