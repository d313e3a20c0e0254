package mappings

import (
	"context"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

func runAutoMatch(_ context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error) {
	if m.auto == nil {
		m.log.Warn("no auto-matcher configured, skipping baseline")
		return Result{}, nil
	}
	before, bm, bf := m.g.Unmatched(graph.SideA)
	if err := m.auto.AutoMatch(m.g, progress); err != nil {
		return Result{}, err
	}
	after, am, af := m.g.Unmatched(graph.SideA)
	return Result{Classes: before - after, Methods: bm - am, Fields: bf - af}, nil
}
