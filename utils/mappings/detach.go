package mappings

import (
	"context"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

// runDetachWrongMethods unmatches single method pairs whose bodies differ,
// keeping the class match.
func runDetachWrongMethods(ctx context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error) {
	g := m.g
	mismatched := newIDSet[graph.MethodID]()

	err := m.forEachClass(ctx, m.candidates(nil), progress, func(c graph.ClassID) error {
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
				m.log.Debug("method contents mismatch", "method", g.MethodString(id), "match", g.MethodString(partner))
				mismatched.Add(id)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, id := range mismatched.Sorted() {
		g.UnmatchMethod(id)
		res.Retracted++
	}
	m.metrics.unmatched.WithLabelValues(DetachWrongMethods.String(), "method").Add(float64(res.Retracted))
	return res, nil
}
