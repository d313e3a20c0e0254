package mappings

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// Mismatch is a matched method pair whose raw bodies disagree.
type Mismatch struct {
	A, B   graph.MethodID
	Reason string
}

// Verify checks every matched method pair on the raw instruction lists:
// same length, same kinds and opcodes, same line numbers.
func (m *Matcher) Verify(ctx context.Context) ([]Mismatch, error) {
	g := m.g
	classes := m.candidates(func(c graph.ClassID) bool {
		return len(g.Class(c).Methods) > 0
	})
	var (
		mu  sync.Mutex
		out []Mismatch
	)

	err := m.forEachClass(ctx, classes, nil, func(c graph.ClassID) error {
		for _, id := range g.Class(c).Methods {
			partner := g.MethodMatch(id)
			if partner == graph.NoMethod {
				continue
			}
			if reason := rawMismatch(g.Method(id), g.Method(partner)); reason != "" {
				mu.Lock()
				out = append(out, Mismatch{A: id, B: partner, Reason: reason})
				mu.Unlock()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(x, y Mismatch) int {
		return int(x.A) - int(y.A)
	})
	for _, mm := range out {
		m.log.Warn("match verification failed", "method", g.MethodString(mm.A), "match", g.MethodString(mm.B), "reason", mm.Reason)
	}
	return out, nil
}

func rawMismatch(a, b *graph.Method) string {
	if len(a.Insns) != len(b.Insns) {
		return fmt.Sprintf("instruction count %d vs %d", len(a.Insns), len(b.Insns))
	}
	for i := range a.Insns {
		x, y := &a.Insns[i], &b.Insns[i]
		if x.Kind != y.Kind || x.Op != y.Op {
			return fmt.Sprintf("instruction %d: %s vs %s", i, x, y)
		}
		if x.Kind == insn.KindLine && x.Line != y.Line {
			return fmt.Sprintf("line %d vs %d at %d", x.Line, y.Line, i)
		}
	}
	return ""
}
