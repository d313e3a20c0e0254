// Package glue gives obfuscated symbols permanent numeric identifiers that
// are shared across both sides and across inheritance hierarchies, and
// derives the glue names written to mapping files from them.
package glue

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/ruinedyourlife/gluematch/utils/graph"
)

var (
	ErrInconsistentHierarchy = errors.New("inconsistent method hierarchy naming")
	ErrInconsistentUID       = errors.New("inconsistent uid")
)

// Skipper reports whether a class is left out of allocation.
type Skipper func(g *graph.Graph, c graph.ClassID) bool

// SideSkipper builds a Skipper from per-side class name predicates. A nil
// predicate skips nothing on its side.
func SideSkipper(a, b func(name string) bool) Skipper {
	return func(g *graph.Graph, c graph.ClassID) bool {
		cls := g.Class(c)
		pred := a
		if cls.Side == graph.SideB {
			pred = b
		}
		return pred != nil && pred(cls.Name)
	}
}

// Stats reports what one allocation run did. The Next fields are the
// counter values the following claim would have taken.
type Stats struct {
	Classes, Methods, Fields         int
	NextClass, NextMethod, NextField int
}

type allocator struct {
	g    *graph.Graph
	skip Skipper

	nextClass, nextMethod, nextField int
	stats                            Stats
}

// Assign allocates UIDs to every obfuscated origin symbol that does not
// have one yet. Classes of both sides are visited by name, then side, then
// handle. Counters continue after the highest UID already present, so
// running Assign twice changes nothing and a reset followed by Assign
// reproduces the same numbering.
func Assign(g *graph.Graph, skip Skipper, progress func(float64)) (Stats, error) {
	a := &allocator{g: g, skip: skip, nextClass: 1, nextMethod: 1, nextField: 1}
	a.seedCounters()

	classes := append(originClasses(g, graph.SideA), originClasses(g, graph.SideB)...)
	slices.SortFunc(classes, func(x, y graph.ClassID) int {
		cx, cy := g.Class(x), g.Class(y)
		return cmp.Or(
			cmp.Compare(cx.Name, cy.Name),
			cmp.Compare(cx.Side, cy.Side),
			cmp.Compare(x, y),
		)
	})

	for i, c := range classes {
		if a.skipped(c) {
			continue
		}
		if err := a.class(c); err != nil {
			return a.result(), err
		}
		if err := a.methods(c); err != nil {
			return a.result(), err
		}
		if err := a.fields(c); err != nil {
			return a.result(), err
		}
		if progress != nil {
			progress(float64(i+1) / float64(len(classes)))
		}
	}
	return a.result(), nil
}

func (a *allocator) result() Stats {
	s := a.stats
	s.NextClass, s.NextMethod, s.NextField = a.nextClass, a.nextMethod, a.nextField
	return s
}

func (a *allocator) seedCounters() {
	g := a.g
	for c := range g.NumClasses() {
		a.nextClass = max(a.nextClass, g.ClassUID(graph.ClassID(c))+1)
	}
	for m := range g.NumMethods() {
		a.nextMethod = max(a.nextMethod, g.MethodUID(graph.MethodID(m))+1)
	}
	for f := range g.NumFields() {
		a.nextField = max(a.nextField, g.FieldUID(graph.FieldID(f))+1)
	}
}

func (a *allocator) skipped(c graph.ClassID) bool {
	return a.skip != nil && a.skip(a.g, c)
}

func (a *allocator) class(c graph.ClassID) error {
	g := a.g
	if !g.Class(c).Obfuscated {
		return nil
	}
	uid := g.ClassUID(c)
	other := g.ClassMatch(c)

	if uid > 0 {
		if other != graph.NoClass && g.ClassUID(other) > 0 && g.ClassUID(other) != uid {
			return fmt.Errorf("class %s has %d, match %s has %d: %w",
				g.Class(c).Name, uid, g.Class(other).Name, g.ClassUID(other), ErrInconsistentUID)
		}
		return nil
	}

	if other != graph.NoClass && g.ClassUID(other) > 0 {
		uid = g.ClassUID(other)
	} else {
		uid = a.nextClass
		a.nextClass++
	}
	if err := g.SetClassUID(c, uid); err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistentUID, err)
	}
	a.stats.Classes++
	if other != graph.NoClass && g.Class(other).Obfuscated && !a.skipped(other) {
		if err := g.SetClassUID(other, uid); err != nil {
			return fmt.Errorf("%w: %w", ErrInconsistentUID, err)
		}
	}
	return nil
}

func (a *allocator) methods(c graph.ClassID) error {
	g := a.g
	var pending []graph.MethodID
	for _, m := range g.Class(c).Methods {
		if a.wantsMethodUID(m) {
			pending = append(pending, m)
		}
	}
	slices.SortFunc(pending, func(x, y graph.MethodID) int {
		mx, my := g.Method(x), g.Method(y)
		return cmp.Or(cmp.Compare(mx.Name, my.Name), cmp.Compare(mx.Desc, my.Desc))
	})

	for _, m := range pending {
		// An earlier method in this class may have stamped m already.
		if g.MethodUID(m) > 0 {
			continue
		}
		members := g.HierarchyMembers(m)
		uid := -1
		for _, x := range members {
			u := g.MethodUID(x)
			if u <= 0 {
				continue
			}
			if uid > 0 && u != uid {
				return fmt.Errorf("%s: hierarchy carries %d and %d: %w", g.MethodString(m), uid, u, ErrInconsistentHierarchy)
			}
			uid = u
		}
		if uid <= 0 {
			uid = a.nextMethod
			a.nextMethod++
		}
		for _, x := range members {
			if err := g.SetMethodUID(x, uid); err != nil {
				return fmt.Errorf("%w: %w", ErrInconsistentUID, err)
			}
		}
		a.stats.Methods++
	}
	return nil
}

// wantsMethodUID excludes methods whose hierarchy parents live in skipped
// classes; they keep the name their parent's class gives them.
func (a *allocator) wantsMethodUID(m graph.MethodID) bool {
	g := a.g
	method := g.Method(m)
	if !method.Obfuscated || g.MethodUID(m) > 0 {
		return false
	}
	for _, p := range method.Parents {
		if a.skipped(g.Method(p).Owner) {
			return false
		}
	}
	return true
}

func (a *allocator) fields(c graph.ClassID) error {
	g := a.g
	var pending []graph.FieldID
	for _, f := range g.Class(c).Fields {
		if g.Field(f).Obfuscated && g.FieldUID(f) <= 0 {
			pending = append(pending, f)
		}
	}
	slices.SortFunc(pending, func(x, y graph.FieldID) int {
		fx, fy := g.Field(x), g.Field(y)
		return cmp.Or(cmp.Compare(fx.Name, fy.Name), cmp.Compare(fx.Desc, fy.Desc))
	})

	for _, f := range pending {
		other := g.FieldMatch(f)
		var uid int
		if other != graph.NoField && g.FieldUID(other) > 0 {
			uid = g.FieldUID(other)
		} else {
			uid = a.nextField
			a.nextField++
		}
		if err := g.SetFieldUID(f, uid); err != nil {
			return fmt.Errorf("%w: %w", ErrInconsistentUID, err)
		}
		if other != graph.NoField && g.Field(other).Obfuscated && !a.skipped(g.Field(other).Owner) {
			if err := g.SetFieldUID(other, uid); err != nil {
				return fmt.Errorf("%w: %w", ErrInconsistentUID, err)
			}
		}
		a.stats.Fields++
	}
	return nil
}

// Reset clears every UID so a fresh allocation can run.
func Reset(g *graph.Graph, progress func(float64)) {
	g.ClearUIDs()
	if progress != nil {
		progress(1)
	}
}

func originClasses(g *graph.Graph, side graph.Side) []graph.ClassID {
	var out []graph.ClassID
	for _, c := range g.Classes(side) {
		if g.Class(c).Origin {
			out = append(out, c)
		}
	}
	return out
}
