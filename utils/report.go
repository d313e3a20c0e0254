package utils

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ruinedyourlife/gluematch/utils/graph"
)

type classMatch struct {
	a, b     string
	matched  int
	members  int
	complete bool
}

// GenerateMatchReport writes the class matches of g grouped by side a
// package, followed by the unmatched origin classes of each side.
func GenerateMatchReport(g *graph.Graph, outputFile string) error {
	var report strings.Builder

	report.WriteString("Class Matches Report\n")
	report.WriteString("====================\n\n")

	// Group matches by package
	packageMatches := make(map[string][]classMatch)
	total := 0
	for _, id := range g.Classes(graph.SideA) {
		other := g.ClassMatch(id)
		if other == graph.NoClass {
			continue
		}
		c := g.Class(id)
		m := classMatch{a: c.Name, b: g.Class(other).Name, complete: g.IsFullyMatched(id)}
		for _, mid := range c.Methods {
			if g.Method(mid).Real {
				m.members++
				if g.MethodMatch(mid) != graph.NoMethod {
					m.matched++
				}
			}
		}
		for _, fid := range c.Fields {
			if g.Field(fid).Real {
				m.members++
				if g.FieldMatch(fid) != graph.NoField {
					m.matched++
				}
			}
		}
		pkg := packageOf(c.Name)
		packageMatches[pkg] = append(packageMatches[pkg], m)
		total++
	}

	// Sort packages for consistent output
	var packages []string
	for pkg := range packageMatches {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	for _, pkg := range packages {
		report.WriteString(fmt.Sprintf("\nPackage: %s\n", pkg))
		report.WriteString(strings.Repeat("-", len(pkg)+9) + "\n")

		matches := packageMatches[pkg]
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].a < matches[j].a
		})

		for _, m := range matches {
			state := "partial"
			if m.complete {
				state = "complete"
			}
			report.WriteString(fmt.Sprintf("%s -> %s (%s, %d/%d members)\n", m.a, m.b, state, m.matched, m.members))
		}
	}

	for _, side := range []graph.Side{graph.SideA, graph.SideB} {
		var unmatched []string
		for _, name := range SortedClassNames(g, side) {
			id := g.ClassByName(side, name)
			if c := g.Class(id); c.Origin && g.ClassMatch(id) == graph.NoClass {
				unmatched = append(unmatched, name)
			}
		}
		if len(unmatched) == 0 {
			continue
		}
		report.WriteString(fmt.Sprintf("\nUnmatched on side %s\n", side))
		report.WriteString("-------------------\n")
		for _, name := range unmatched {
			report.WriteString(name + "\n")
		}
	}

	report.WriteString(fmt.Sprintf("\nTotal matches: %d across %d packages\n",
		total,
		len(packageMatches),
	))

	return os.WriteFile(outputFile, []byte(report.String()), 0644)
}

func packageOf(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return "(default)"
}
