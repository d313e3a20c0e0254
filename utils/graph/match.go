package graph

import "fmt"

func (g *Graph) ClassMatch(c ClassID) ClassID    { return g.classMatch[c] }
func (g *Graph) MethodMatch(m MethodID) MethodID { return g.methodMatch[m] }
func (g *Graph) FieldMatch(f FieldID) FieldID    { return g.fieldMatch[f] }

// MatchClasses pairs a and b, first dropping any previous partner of
// either. Both sides of the relation are updated together.
func (g *Graph) MatchClasses(a, b ClassID) error {
	if g.classes[a].Side == g.classes[b].Side {
		return fmt.Errorf("match %s with %s: %w", g.classes[a].Name, g.classes[b].Name, ErrSameSide)
	}
	if g.classMatch[a] == b {
		return nil
	}
	g.UnmatchClass(a)
	g.UnmatchClass(b)
	g.classMatch[a] = b
	g.classMatch[b] = a
	return nil
}

// UnmatchClass clears the match of c and of all its members.
func (g *Graph) UnmatchClass(c ClassID) {
	other := g.classMatch[c]
	if other == NoClass {
		return
	}
	for _, m := range g.classes[c].Methods {
		g.UnmatchMethod(m)
	}
	for _, f := range g.classes[c].Fields {
		g.UnmatchField(f)
	}
	g.classMatch[c] = NoClass
	g.classMatch[other] = NoClass
}

// MatchMethods pairs two methods whose owners are matched to each other.
func (g *Graph) MatchMethods(a, b MethodID) error {
	ma, mb := g.methods[a], g.methods[b]
	if g.classes[ma.Owner].Side == g.classes[mb.Owner].Side {
		return fmt.Errorf("match %s with %s: %w", g.MethodString(a), g.MethodString(b), ErrSameSide)
	}
	if g.classMatch[ma.Owner] != mb.Owner {
		return fmt.Errorf("match %s with %s: %w", g.MethodString(a), g.MethodString(b), ErrOwnersNotMatched)
	}
	if g.methodMatch[a] == b {
		return nil
	}
	g.UnmatchMethod(a)
	g.UnmatchMethod(b)
	g.methodMatch[a] = b
	g.methodMatch[b] = a
	return nil
}

func (g *Graph) UnmatchMethod(m MethodID) {
	if other := g.methodMatch[m]; other != NoMethod {
		g.methodMatch[m] = NoMethod
		g.methodMatch[other] = NoMethod
	}
}

// MatchFields pairs two fields whose owners are matched to each other.
func (g *Graph) MatchFields(a, b FieldID) error {
	fa, fb := g.fields[a], g.fields[b]
	if g.classes[fa.Owner].Side == g.classes[fb.Owner].Side {
		return fmt.Errorf("match %s with %s: %w", g.FieldString(a), g.FieldString(b), ErrSameSide)
	}
	if g.classMatch[fa.Owner] != fb.Owner {
		return fmt.Errorf("match %s with %s: %w", g.FieldString(a), g.FieldString(b), ErrOwnersNotMatched)
	}
	if g.fieldMatch[a] == b {
		return nil
	}
	g.UnmatchField(a)
	g.UnmatchField(b)
	g.fieldMatch[a] = b
	g.fieldMatch[b] = a
	return nil
}

func (g *Graph) UnmatchField(f FieldID) {
	if other := g.fieldMatch[f]; other != NoField {
		g.fieldMatch[f] = NoField
		g.fieldMatch[other] = NoField
	}
}

// IsFullyMatched reports whether c is matched along with every real method
// and field it declares.
func (g *Graph) IsFullyMatched(c ClassID) bool {
	if g.classMatch[c] == NoClass {
		return false
	}
	for _, m := range g.classes[c].Methods {
		if g.methods[m].Real && g.methodMatch[m] == NoMethod {
			return false
		}
	}
	for _, f := range g.classes[c].Fields {
		if g.fields[f].Real && g.fieldMatch[f] == NoField {
			return false
		}
	}
	return true
}

// Unmatched counts, over the obfuscated source classes of side, the classes
// without a match and the members of matched classes without a match.
func (g *Graph) Unmatched(side Side) (classes, methods, fields int) {
	for _, c := range g.sides[side] {
		cls := g.classes[c]
		if !cls.Origin || !cls.Obfuscated {
			continue
		}
		if g.classMatch[c] == NoClass {
			classes++
			continue
		}
		for _, m := range cls.Methods {
			if g.methodMatch[m] == NoMethod {
				methods++
			}
		}
		for _, f := range cls.Fields {
			if g.fieldMatch[f] == NoField {
				fields++
			}
		}
	}
	return classes, methods, fields
}

// UIDs are -1 until assigned.

func (g *Graph) ClassUID(c ClassID) int   { return g.classUID[c] }
func (g *Graph) MethodUID(m MethodID) int { return g.methodUID[m] }
func (g *Graph) FieldUID(f FieldID) int   { return g.fieldUID[f] }

// SetClassUID assigns uid to c. Replacing one positive UID with another
// fails with ErrUIDConflict; -1 clears.
func (g *Graph) SetClassUID(c ClassID, uid int) error {
	if err := checkUID(g.classUID[c], uid); err != nil {
		return fmt.Errorf("class %s: %w", g.classes[c].Name, err)
	}
	g.classUID[c] = uid
	return nil
}

func (g *Graph) SetMethodUID(m MethodID, uid int) error {
	if err := checkUID(g.methodUID[m], uid); err != nil {
		return fmt.Errorf("method %s: %w", g.MethodString(m), err)
	}
	g.methodUID[m] = uid
	return nil
}

func (g *Graph) SetFieldUID(f FieldID, uid int) error {
	if err := checkUID(g.fieldUID[f], uid); err != nil {
		return fmt.Errorf("field %s: %w", g.FieldString(f), err)
	}
	g.fieldUID[f] = uid
	return nil
}

func checkUID(cur, uid int) error {
	if uid == 0 || uid < -1 {
		return fmt.Errorf("invalid uid %d", uid)
	}
	if cur > 0 && uid > 0 && cur != uid {
		return fmt.Errorf("has %d, wanted %d: %w", cur, uid, ErrUIDConflict)
	}
	return nil
}

// ClearUIDs resets every UID to unassigned.
func (g *Graph) ClearUIDs() {
	for i := range g.classUID {
		g.classUID[i] = -1
	}
	for i := range g.methodUID {
		g.methodUID[i] = -1
	}
	for i := range g.fieldUID {
		g.fieldUID[i] = -1
	}
}
