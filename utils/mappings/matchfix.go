package mappings

import (
	"context"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

// runMatchFix drops the whole class match of any partially matched class
// holding a matched method pair whose bodies differ.
func runMatchFix(ctx context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error) {
	g := m.g
	classes := m.candidates(func(c graph.ClassID) bool {
		return !g.IsFullyMatched(c)
	})
	mismatched := newIDSet[graph.ClassID]()

	err := m.forEachClass(ctx, classes, progress, func(c graph.ClassID) error {
		for _, id := range g.Class(c).Methods {
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
				mismatched.Add(c)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, c := range mismatched.Sorted() {
		g.UnmatchClass(c)
		res.Retracted++
	}
	m.metrics.unmatched.WithLabelValues(MatchFix.String(), "class").Add(float64(res.Retracted))
	return res, nil
}
