package mappings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruinedyourlife/gluematch/utils"
)

// Step is one matching pass. The set is closed; every step owns exactly
// one run function.
type Step uint8

const (
	AutoMatch Step = iota
	MatchFix
	UsageMatch
	DetachWrongMethods
	LineNumberMatch
	HierarchyMethodMatch
)

// AllSteps lists every step in pipeline order.
var AllSteps = []Step{AutoMatch, MatchFix, UsageMatch, DetachWrongMethods, LineNumberMatch, HierarchyMethodMatch}

var steps = [...]struct {
	name  string
	title string
}{
	AutoMatch:            {"auto-match", "Apply auto-match"},
	MatchFix:             {"match-fix", "Apply auto-match fix"},
	UsageMatch:           {"usage-match", "Match by class usage"},
	DetachWrongMethods:   {"detach-wrong-methods", "Apply mismatched method fix"},
	LineNumberMatch:      {"line-number-match", "Match by line numbers"},
	HierarchyMethodMatch: {"hierarchy-method-match", "Match by method ownership"},
}

type stepFunc func(ctx context.Context, m *Matcher, progress utils.ProgressFunc) (Result, error)

// impl returns the run function of s, nil for values outside the set.
func (s Step) impl() stepFunc {
	switch s {
	case AutoMatch:
		return runAutoMatch
	case MatchFix:
		return runMatchFix
	case UsageMatch:
		return runUsageMatch
	case DetachWrongMethods:
		return runDetachWrongMethods
	case LineNumberMatch:
		return runLineNumberMatch
	case HierarchyMethodMatch:
		return runHierarchyMethodMatch
	}
	return nil
}

func (s Step) String() string {
	if int(s) < len(steps) {
		return steps[s].name
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// Title is the human readable description of the step.
func (s Step) Title() string {
	if int(s) < len(steps) {
		return steps[s].title
	}
	return s.String()
}

// ParseStep accepts a step name, case-insensitively.
func ParseStep(name string) (Step, error) {
	for i, st := range steps {
		if strings.EqualFold(st.name, strings.TrimSpace(name)) {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// ParseSteps parses a list of step names, keeping pipeline order and
// dropping duplicates. An empty list selects every step.
func ParseSteps(names []string) ([]Step, error) {
	if len(names) == 0 {
		return AllSteps, nil
	}
	selected := make(map[Step]bool, len(names))
	for _, name := range names {
		s, err := ParseStep(name)
		if err != nil {
			return nil, err
		}
		selected[s] = true
	}
	var out []Step
	for _, s := range AllSteps {
		if selected[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	st, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
