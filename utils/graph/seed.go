package graph

import "fmt"

type ClassPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

type MemberPair struct {
	A MemberRef `json:"a"`
	B MemberRef `json:"b"`
}

// SeedMatcher replays a baseline produced by an external auto-matcher,
// usually the matches recorded in a snapshot.
type SeedMatcher struct {
	Classes []ClassPair
	Methods []MemberPair
	Fields  []MemberPair
}

func (s *SeedMatcher) Len() int {
	return len(s.Classes) + len(s.Methods) + len(s.Fields)
}

// AutoMatch applies every recorded pair, classes first. An unknown name
// fails the whole seed.
func (s *SeedMatcher) AutoMatch(g *Graph, progress func(float64)) error {
	total := float64(s.Len())
	done := 0
	step := func() {
		done++
		if progress != nil {
			progress(float64(done) / total)
		}
	}

	for _, p := range s.Classes {
		a, b := g.ClassByName(SideA, p.A), g.ClassByName(SideB, p.B)
		if a == NoClass || b == NoClass {
			return fmt.Errorf("seed class %s -> %s: %w", p.A, p.B, ErrUnknownSymbol)
		}
		if err := g.MatchClasses(a, b); err != nil {
			return fmt.Errorf("seed class %s -> %s: %w", p.A, p.B, err)
		}
		step()
	}
	for _, p := range s.Methods {
		a, b := g.lookupMethod(SideA, p.A), g.lookupMethod(SideB, p.B)
		if a == NoMethod || b == NoMethod {
			return fmt.Errorf("seed method %s -> %s: %w", p.A, p.B, ErrUnknownSymbol)
		}
		if err := g.MatchMethods(a, b); err != nil {
			return fmt.Errorf("seed method: %w", err)
		}
		step()
	}
	for _, p := range s.Fields {
		a, b := g.lookupField(SideA, p.A), g.lookupField(SideB, p.B)
		if a == NoField || b == NoField {
			return fmt.Errorf("seed field %s -> %s: %w", p.A, p.B, ErrUnknownSymbol)
		}
		if err := g.MatchFields(a, b); err != nil {
			return fmt.Errorf("seed field: %w", err)
		}
		step()
	}
	return nil
}

func (g *Graph) lookupMethod(side Side, ref MemberRef) MethodID {
	owner := g.ClassByName(side, ref.Owner)
	if owner == NoClass {
		return NoMethod
	}
	return g.declared(owner, ref.Name, ref.Desc)
}

func (g *Graph) lookupField(side Side, ref MemberRef) FieldID {
	owner := g.ClassByName(side, ref.Owner)
	if owner == NoClass {
		return NoField
	}
	for _, id := range g.classes[owner].Fields {
		if f := g.fields[id]; f.Name == ref.Name && f.Desc == ref.Desc {
			return id
		}
	}
	return NoField
}

func (r MemberRef) String() string {
	return r.Owner + "#" + r.Name + r.Desc
}
