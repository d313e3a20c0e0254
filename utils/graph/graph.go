// Package graph holds both compilations being matched: an arena of class,
// method and field symbols addressed by typed handles, the symmetric match
// relation between the two sides, glue UIDs, and the structural equality
// oracle the matching passes consult.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ruinedyourlife/gluematch/utils/insn"
)

var (
	ErrSameSide         = errors.New("symbols are on the same side")
	ErrOwnersNotMatched = errors.New("owning classes are not matched to each other")
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrDuplicateSymbol  = errors.New("duplicate symbol")
	ErrUIDConflict      = errors.New("uid already assigned")
)

// Side is one of the two input compilations.
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) Other() Side {
	return 1 - s
}

func (s Side) String() string {
	if s == SideA {
		return "a"
	}
	return "b"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "a", "A":
		*s = SideA
	case "b", "B":
		*s = SideB
	default:
		return fmt.Errorf("unknown side %q", string(text))
	}
	return nil
}

type (
	ClassID  int32
	MethodID int32
	FieldID  int32
)

const (
	NoClass  ClassID  = -1
	NoMethod MethodID = -1
	NoField  FieldID  = -1
)

// Class is one class on one side. Origin is false for library classes,
// which take part in name resolution only.
type Class struct {
	ID         ClassID
	Side       Side
	Name       string
	Obfuscated bool
	Origin     bool
	MappedName string

	Super      ClassID
	Interfaces []ClassID
	Methods    []MethodID
	Fields     []FieldID

	superName  string
	ifaceNames []string
}

// SuperName is the declared super class name, resolved or not.
func (c *Class) SuperName() string { return c.superName }

// InterfaceNames lists the declared interface names, resolved or not.
func (c *Class) InterfaceNames() []string { return c.ifaceNames }

// Var is a method argument or local variable.
type Var struct {
	Method  MethodID
	Arg     bool
	Ordinal int
	Slot    int
	Desc    string
	// Type is the element class of Desc, NoClass for primitives and
	// classes outside the graph.
	Type ClassID
	// Start and End bound the live range of a local as indexes into the
	// unfiltered instruction list, End exclusive.
	Start, End int
}

type Method struct {
	ID         MethodID
	Owner      ClassID
	Name       string
	Desc       string
	Static     bool
	Obfuscated bool
	Real       bool
	MappedName string

	Args    []Var
	Vars    []Var
	Parents []MethodID
	// Ret is the element class of the return type.
	Ret     ClassID
	RetDesc string
	Insns   []insn.Insn

	parentRefs []MemberRef
	bodyOnce   sync.Once
	body       *insn.Body
}

// Body returns the instruction list without labels and frames. It is
// computed once and safe for concurrent use.
func (m *Method) Body() *insn.Body {
	m.bodyOnce.Do(func() {
		m.body = insn.Strip(m.Insns)
	})
	return m.body
}

// ArgOrVar returns the argument in slot, or else the local in slot live at
// index pos of the unfiltered instruction list.
func (m *Method) ArgOrVar(slot, pos int) *Var {
	for i := range m.Args {
		if m.Args[i].Slot == slot {
			return &m.Args[i]
		}
	}
	for i := range m.Vars {
		v := &m.Vars[i]
		if v.Slot == slot && v.Start <= pos && pos < v.End {
			return v
		}
	}
	return nil
}

type Field struct {
	ID         FieldID
	Owner      ClassID
	Name       string
	Desc       string
	Static     bool
	Obfuscated bool
	Real       bool
	MappedName string
	Type       ClassID
}

// MemberRef names a method by owner, name and descriptor.
type MemberRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Desc  string `json:"desc"`
}

// Graph is the symbol arena for both sides. Building (Add*, Link) and
// match mutation are single-threaded; reads are safe to share between
// goroutines while no mutation is in progress.
type Graph struct {
	classes []*Class
	methods []*Method
	fields  []*Field
	byName  [2]map[string]ClassID
	sides   [2][]ClassID

	classMatch  []ClassID
	methodMatch []MethodID
	fieldMatch  []FieldID

	classUID  []int
	methodUID []int
	fieldUID  []int

	children   [][]ClassID
	overriders [][]MethodID
	linked     bool
}

func New() *Graph {
	return &Graph{
		byName: [2]map[string]ClassID{make(map[string]ClassID), make(map[string]ClassID)},
	}
}

func (g *Graph) Class(id ClassID) *Class    { return g.classes[id] }
func (g *Graph) Method(id MethodID) *Method { return g.methods[id] }
func (g *Graph) Field(id FieldID) *Field    { return g.fields[id] }

func (g *Graph) NumClasses() int { return len(g.classes) }
func (g *Graph) NumMethods() int { return len(g.methods) }
func (g *Graph) NumFields() int  { return len(g.fields) }

// Classes returns the classes of one side in insertion order.
func (g *Graph) Classes(side Side) []ClassID {
	return g.sides[side]
}

// ClassByName looks a class up by internal name, NoClass if absent.
func (g *Graph) ClassByName(side Side, name string) ClassID {
	if id, ok := g.byName[side][name]; ok {
		return id
	}
	return NoClass
}

// MethodSide and FieldSide report the side of a member through its owner.
func (g *Graph) MethodSide(id MethodID) Side { return g.classes[g.methods[id].Owner].Side }
func (g *Graph) FieldSide(id FieldID) Side   { return g.classes[g.fields[id].Owner].Side }

// Children returns the classes directly extending or implementing c.
func (g *Graph) Children(c ClassID) []ClassID {
	return g.children[c]
}

// Overriders returns the methods listing m as a hierarchy parent.
func (g *Graph) Overriders(m MethodID) []MethodID {
	return g.overriders[m]
}

func (g *Graph) MethodString(id MethodID) string {
	m := g.methods[id]
	return g.classes[m.Owner].Name + "#" + m.Name + m.Desc
}

func (g *Graph) FieldString(id FieldID) string {
	f := g.fields[id]
	return g.classes[f.Owner].Name + "#" + f.Name + ":" + f.Desc
}
