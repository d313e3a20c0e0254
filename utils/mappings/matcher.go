package mappings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruinedyourlife/gluematch/utils"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

// ErrInconsistent marks a graph state the matching steps cannot have
// produced on their own, such as a parent class matched to a class that
// does not declare the partner's parent method.
var ErrInconsistent = errors.New("inconsistent match state")

// DefaultMaxRounds bounds the usage-match repetitions of RunUntilStable.
const DefaultMaxRounds = 64

// AutoMatcher establishes the baseline matches the other steps refine.
type AutoMatcher interface {
	AutoMatch(g *graph.Graph, progress func(float64)) error
}

// Result sums what one or more steps changed.
type Result struct {
	Classes   int      `json:"classes"`
	Methods   int      `json:"methods"`
	Fields    int      `json:"fields"`
	Retracted int      `json:"retracted"`
	Dropped   int      `json:"dropped"`
	Misses    []string `json:"misses,omitempty"`
	Rounds    int      `json:"rounds,omitempty"`
}

func (r *Result) add(o Result) {
	r.Classes += o.Classes
	r.Methods += o.Methods
	r.Fields += o.Fields
	r.Retracted += o.Retracted
	r.Dropped += o.Dropped
	r.Misses = append(r.Misses, o.Misses...)
	r.Rounds += o.Rounds
}

// Matcher runs matching steps over a graph. Work inside a step is spread
// over the runner; all graph mutation happens on the calling goroutine
// between steps.
type Matcher struct {
	g       *graph.Graph
	runner  utils.Runner
	auto    AutoMatcher
	log     *slog.Logger
	metrics *Metrics

	// MaxRounds caps usage-match repetitions in RunUntilStable; zero or
	// less means DefaultMaxRounds.
	MaxRounds int
}

func NewMatcher(g *graph.Graph, runner utils.Runner, auto AutoMatcher, logger *slog.Logger, metrics *Metrics) *Matcher {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		g:         g,
		runner:    runner,
		auto:      auto,
		log:       logger,
		metrics:   metrics,
		MaxRounds: DefaultMaxRounds,
	}
}

// RunSteps runs each of the given steps once, in order, splitting progress
// evenly between them.
func (m *Matcher) RunSteps(ctx context.Context, selected []Step, progress utils.ProgressFunc) (Result, error) {
	var total Result
	width := 1 / float64(max(len(selected), 1))
	for i, s := range selected {
		res, err := m.runStep(ctx, s, utils.Scale(progress, float64(i)*width, width))
		total.add(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RunUntilStable runs every step once, then repeats usage-match until a
// round leaves the unmatched class, method and field counts unchanged. The
// change is summed as absolute values per kind, so a round that gains and
// loses the same number of matches of one kind reads as stable.
func (m *Matcher) RunUntilStable(ctx context.Context, progress utils.ProgressFunc) (Result, error) {
	width := 1 / float64(len(AllSteps)+1)
	total, err := m.RunSteps(ctx, AllSteps, utils.Scale(progress, 0, 1-width))
	if err != nil {
		return total, err
	}

	limit := m.MaxRounds
	if limit <= 0 {
		limit = DefaultMaxRounds
	}
	offset := 1 - width
	for round := 1; ; round++ {
		if round > limit {
			m.log.Warn("fixpoint round limit reached", "rounds", limit)
			break
		}
		bc, bm, bf := m.g.Unmatched(graph.SideA)

		// Each round takes half of what is left of the bar.
		width /= 2
		res, err := m.runStep(ctx, UsageMatch, utils.Scale(progress, offset, width))
		offset += width
		total.add(res)
		total.Rounds++
		m.metrics.rounds.Inc()
		if err != nil {
			return total, err
		}

		ac, am, af := m.g.Unmatched(graph.SideA)
		changed := abs(bc-ac) + abs(bm-am) + abs(bf-af)
		m.log.Debug("fixpoint round", "round", round, "changed", changed)
		if changed == 0 {
			break
		}
	}
	if progress != nil {
		progress(1)
	}
	return total, nil
}

func (m *Matcher) runStep(ctx context.Context, s Step, progress utils.ProgressFunc) (Result, error) {
	run := s.impl()
	if run == nil {
		return Result{}, fmt.Errorf("unknown step %d", uint8(s))
	}
	before, _, _ := m.g.Unmatched(graph.SideA)
	start := time.Now()

	res, err := run(ctx, m, progress)

	m.metrics.stepDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		m.metrics.stepErrors.WithLabelValues(s.String()).Inc()
		return res, fmt.Errorf("%s: %w", s, err)
	}
	m.metrics.misses.WithLabelValues(s.String()).Add(float64(len(res.Misses)))

	classes, methods, fields := m.g.Unmatched(graph.SideA)
	m.metrics.observeRemaining(classes, methods, fields)
	m.log.Info("pass summary",
		"step", s.Title(),
		"matched", before-classes,
		"unmatched", classes,
		"total", len(m.g.Classes(graph.SideA)),
		"progress", fmt.Sprintf("%.1f%%", m.matchedPercent()),
	)
	return res, nil
}

// matchedPercent is the share of obfuscated source classes on side A that
// have a match.
func (m *Matcher) matchedPercent() float64 {
	total, matched := 0, 0
	for _, c := range m.g.Classes(graph.SideA) {
		cls := m.g.Class(c)
		if !cls.Origin || !cls.Obfuscated {
			continue
		}
		total++
		if m.g.ClassMatch(c) != graph.NoClass {
			matched++
		}
	}
	if total == 0 {
		return 100
	}
	return float64(matched) / float64(total) * 100
}

// candidates returns the matched, obfuscated source classes of side A that
// satisfy keep.
func (m *Matcher) candidates(keep func(graph.ClassID) bool) []graph.ClassID {
	var out []graph.ClassID
	for _, c := range m.g.Classes(graph.SideA) {
		cls := m.g.Class(c)
		if !cls.Origin || !cls.Obfuscated || m.g.ClassMatch(c) == graph.NoClass {
			continue
		}
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Matcher) forEachClass(ctx context.Context, classes []graph.ClassID, progress utils.ProgressFunc, work func(c graph.ClassID) error) error {
	return utils.RunInParallel(ctx, m.runner, classes, func(_ context.Context, c graph.ClassID) error {
		return work(c)
	}, progress)
}

// proposals bundles the per-kind proposal maps of one step run.
type proposals struct {
	classes *Proposals[graph.ClassID]
	methods *Proposals[graph.MethodID]
	fields  *Proposals[graph.FieldID]
}

func newProposals() *proposals {
	return &proposals{
		classes: NewProposals[graph.ClassID](),
		methods: NewProposals[graph.MethodID](),
		fields:  NewProposals[graph.FieldID](),
	}
}

// proposeClass records a -> b for an unmatched pair of obfuscated source
// classes the oracle still allows.
func (m *Matcher) proposeClass(p *proposals, a, b graph.ClassID) {
	if a == graph.NoClass || b == graph.NoClass || m.g.ClassMatch(a) == b {
		return
	}
	ca, cb := m.g.Class(a), m.g.Class(b)
	if !ca.Origin || !ca.Obfuscated || !cb.Origin {
		return
	}
	if !m.g.MayEqualClasses(a, b) {
		return
	}
	p.classes.Propose(a, b)
}

func (m *Matcher) proposeMethod(p *proposals, a, b graph.MethodID) {
	if a == graph.NoMethod || b == graph.NoMethod || m.g.MethodMatch(a) == b {
		return
	}
	if !m.g.MayEqualMethods(a, b) {
		return
	}
	p.methods.Propose(a, b)
}

func (m *Matcher) proposeField(p *proposals, a, b graph.FieldID) {
	if a == graph.NoField || b == graph.NoField || m.g.FieldMatch(a) == b {
		return
	}
	if !m.g.MayEqualFields(a, b) {
		return
	}
	p.fields.Propose(a, b)
}

// apply sanitizes the proposals and applies the survivors: classes first
// so member matches find their owners matched.
func (m *Matcher) apply(s Step, p *proposals) Result {
	var res Result
	name := s.String()

	m.metrics.proposed.WithLabelValues(name, "class").Add(float64(p.classes.Len()))
	m.metrics.proposed.WithLabelValues(name, "method").Add(float64(p.methods.Len()))
	m.metrics.proposed.WithLabelValues(name, "field").Add(float64(p.fields.Len()))

	classes, dropped := p.classes.Sanitize()
	m.metrics.dropped.WithLabelValues(name, "class").Add(float64(dropped))
	res.Dropped += dropped
	for _, pair := range classes {
		if err := m.g.MatchClasses(pair.A, pair.B); err != nil {
			m.log.Warn("skipped proposal", "step", name, "error", err)
			continue
		}
		m.log.Debug("match proposed", "kind", "class", "a", m.g.Class(pair.A).Name, "b", m.g.Class(pair.B).Name)
		res.Classes++
	}

	methods, dropped := p.methods.Sanitize()
	m.metrics.dropped.WithLabelValues(name, "method").Add(float64(dropped))
	res.Dropped += dropped
	for _, pair := range methods {
		if err := m.g.MatchMethods(pair.A, pair.B); err != nil {
			m.log.Debug("skipped proposal", "step", name, "error", err)
			continue
		}
		m.log.Debug("match proposed", "kind", "method", "a", m.g.MethodString(pair.A), "b", m.g.MethodString(pair.B))
		res.Methods++
	}

	fields, dropped := p.fields.Sanitize()
	m.metrics.dropped.WithLabelValues(name, "field").Add(float64(dropped))
	res.Dropped += dropped
	for _, pair := range fields {
		if err := m.g.MatchFields(pair.A, pair.B); err != nil {
			m.log.Debug("skipped proposal", "step", name, "error", err)
			continue
		}
		m.log.Debug("match proposed", "kind", "field", "a", m.g.FieldString(pair.A), "b", m.g.FieldString(pair.B))
		res.Fields++
	}

	m.metrics.applied.WithLabelValues(name, "class").Add(float64(res.Classes))
	m.metrics.applied.WithLabelValues(name, "method").Add(float64(res.Methods))
	m.metrics.applied.WithLabelValues(name, "field").Add(float64(res.Fields))
	return res
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
