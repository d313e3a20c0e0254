package mappings

import (
	"slices"
	"sync"
)

type symbolID interface {
	~int32
}

// Pair is a proposed match from side A to side B.
type Pair[ID symbolID] struct {
	A, B ID
}

// Proposals collects match proposals from concurrent units of work. Every
// distinct target proposed for a source is kept so conflicts survive until
// Sanitize.
type Proposals[ID symbolID] struct {
	mu      sync.Mutex
	targets map[ID][]ID
}

func NewProposals[ID symbolID]() *Proposals[ID] {
	return &Proposals[ID]{targets: make(map[ID][]ID)}
}

func (p *Proposals[ID]) Propose(a, b ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.targets[a], b) {
		p.targets[a] = append(p.targets[a], b)
	}
}

// Has reports whether a -> b was already proposed.
func (p *Proposals[ID]) Has(a, b ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.targets[a], b)
}

// Len is the number of sources with at least one proposal.
func (p *Proposals[ID]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

// Sanitize drops every source proposed to more than one target and every
// target claimed by more than one source, returning the rest ordered by
// source along with the number of sources dropped.
func (p *Proposals[ID]) Sanitize() (kept []Pair[ID], dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	claims := make(map[ID]int)
	for _, targets := range p.targets {
		for _, b := range targets {
			claims[b]++
		}
	}
	for a, targets := range p.targets {
		if len(targets) != 1 || claims[targets[0]] != 1 {
			dropped++
			continue
		}
		kept = append(kept, Pair[ID]{A: a, B: targets[0]})
	}
	slices.SortFunc(kept, func(x, y Pair[ID]) int {
		return int(x.A) - int(y.A)
	})
	return kept, dropped
}

// idSet is a concurrency-safe set of symbols to retract.
type idSet[ID symbolID] struct {
	mu  sync.Mutex
	ids map[ID]struct{}
}

func newIDSet[ID symbolID]() *idSet[ID] {
	return &idSet[ID]{ids: make(map[ID]struct{})}
}

func (s *idSet[ID]) Add(id ID) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

// Sorted returns the members in ascending order.
func (s *idSet[ID]) Sorted() []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
