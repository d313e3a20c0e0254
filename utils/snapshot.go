package utils

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ruinedyourlife/gluematch/utils/graph"
	"github.com/ruinedyourlife/gluematch/utils/insn"
)

// Snapshot is the on-disk form of both compilations, their matches and
// their glue UIDs. Files ending in .gz are gzip compressed.
type Snapshot struct {
	Classes []ClassRecord `json:"classes"`
	Matches MatchRecord   `json:"matches"`
}

type ClassRecord struct {
	Side       graph.Side `json:"side"`
	Name       string     `json:"name"`
	Obfuscated bool       `json:"obfuscated,omitempty"`
	Origin     bool       `json:"origin,omitempty"`
	MappedName string     `json:"mapped_name,omitempty"`
	Super      string     `json:"super,omitempty"`
	Interfaces []string   `json:"interfaces,omitempty"`
	UID        int        `json:"uid,omitempty"`

	Methods []MethodRecord `json:"methods,omitempty"`
	Fields  []FieldRecord  `json:"fields,omitempty"`
}

type VarRecord struct {
	Slot  int    `json:"slot"`
	Desc  string `json:"desc"`
	Start int    `json:"start,omitempty"`
	End   int    `json:"end,omitempty"`
}

type MethodRecord struct {
	Name       string `json:"name"`
	Desc       string `json:"desc"`
	Static     bool   `json:"static,omitempty"`
	Obfuscated bool   `json:"obfuscated,omitempty"`
	Real       bool   `json:"real,omitempty"`
	MappedName string `json:"mapped_name,omitempty"`
	UID        int    `json:"uid,omitempty"`

	// Args is optional; without it arguments follow the descriptor.
	Args    []VarRecord       `json:"args,omitempty"`
	Vars    []VarRecord       `json:"vars,omitempty"`
	Parents []graph.MemberRef `json:"parents,omitempty"`
	Insns   []insn.Insn       `json:"insns,omitempty"`
}

type FieldRecord struct {
	Name       string `json:"name"`
	Desc       string `json:"desc"`
	Static     bool   `json:"static,omitempty"`
	Obfuscated bool   `json:"obfuscated,omitempty"`
	Real       bool   `json:"real,omitempty"`
	MappedName string `json:"mapped_name,omitempty"`
	UID        int    `json:"uid,omitempty"`
}

// MatchRecord lists matched pairs, side a first.
type MatchRecord struct {
	Classes []graph.ClassPair  `json:"classes,omitempty"`
	Methods []graph.MemberPair `json:"methods,omitempty"`
	Fields  []graph.MemberPair `json:"fields,omitempty"`
}

// LoadSnapshot reads a snapshot and builds a linked graph from it. The
// recorded matches are not applied; they come back as a seed for the caller
// to replay.
func LoadSnapshot(path string, logger *slog.Logger) (*graph.Graph, *graph.SeedMatcher, error) {
	logger.Info(fmt.Sprintf("loading snapshot from %s", color.BlueString(path)))

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	g, err := snap.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building %s: %w", path, err)
	}

	seed := &graph.SeedMatcher{
		Classes: snap.Matches.Classes,
		Methods: snap.Matches.Methods,
		Fields:  snap.Matches.Fields,
	}
	logger.Info(fmt.Sprintf("loaded %s classes, %s methods & %s fields (%s recorded matches)",
		color.GreenString(strconv.Itoa(g.NumClasses())),
		color.GreenString(strconv.Itoa(g.NumMethods())),
		color.GreenString(strconv.Itoa(g.NumFields())),
		color.GreenString(strconv.Itoa(seed.Len())),
	))
	return g, seed, nil
}

// Build creates and links the graph described by s and assigns the recorded
// UIDs.
func (s *Snapshot) Build() (*graph.Graph, error) {
	g := graph.New()

	type pending struct {
		class   graph.ClassID
		methods []graph.MethodID
		fields  []graph.FieldID
	}
	built := make([]pending, len(s.Classes))

	for i, rec := range s.Classes {
		id, err := g.AddClass(rec.Side, graph.ClassInfo{
			Name:       rec.Name,
			Obfuscated: rec.Obfuscated,
			Origin:     rec.Origin,
			MappedName: rec.MappedName,
			Super:      rec.Super,
			Interfaces: rec.Interfaces,
		})
		if err != nil {
			return nil, err
		}
		built[i].class = id

		for _, m := range rec.Methods {
			mid, err := g.AddMethod(id, graph.MethodInfo{
				Name:       m.Name,
				Desc:       m.Desc,
				Static:     m.Static,
				Obfuscated: m.Obfuscated,
				Real:       m.Real,
				MappedName: m.MappedName,
				Args:       varInfos(m.Args),
				Vars:       varInfos(m.Vars),
				Parents:    m.Parents,
				Insns:      m.Insns,
			})
			if err != nil {
				return nil, err
			}
			built[i].methods = append(built[i].methods, mid)
		}
		for _, f := range rec.Fields {
			fid, err := g.AddField(id, graph.FieldInfo{
				Name:       f.Name,
				Desc:       f.Desc,
				Static:     f.Static,
				Obfuscated: f.Obfuscated,
				Real:       f.Real,
				MappedName: f.MappedName,
			})
			if err != nil {
				return nil, err
			}
			built[i].fields = append(built[i].fields, fid)
		}
	}

	if err := g.Link(); err != nil {
		return nil, err
	}

	for i, rec := range s.Classes {
		if err := setUID(rec.UID, built[i].class, g.SetClassUID); err != nil {
			return nil, fmt.Errorf("class %s: %w", rec.Name, err)
		}
		for j, m := range rec.Methods {
			if err := setUID(m.UID, built[i].methods[j], g.SetMethodUID); err != nil {
				return nil, fmt.Errorf("method %s: %w", g.MethodString(built[i].methods[j]), err)
			}
		}
		for j, f := range rec.Fields {
			if err := setUID(f.UID, built[i].fields[j], g.SetFieldUID); err != nil {
				return nil, fmt.Errorf("field %s: %w", g.FieldString(built[i].fields[j]), err)
			}
		}
	}
	return g, nil
}

func setUID[ID any](uid int, id ID, set func(ID, int) error) error {
	if uid <= 0 {
		return nil
	}
	return set(id, uid)
}

func varInfos(recs []VarRecord) []graph.VarInfo {
	if recs == nil {
		return nil
	}
	out := make([]graph.VarInfo, len(recs))
	for i, r := range recs {
		out[i] = graph.VarInfo{Slot: r.Slot, Desc: r.Desc, Start: r.Start, End: r.End}
	}
	return out
}

// NewSnapshot captures g, including its current matches and UIDs.
func NewSnapshot(g *graph.Graph) *Snapshot {
	snap := &Snapshot{}
	for _, side := range []graph.Side{graph.SideA, graph.SideB} {
		for _, cid := range g.Classes(side) {
			c := g.Class(cid)
			rec := ClassRecord{
				Side:       c.Side,
				Name:       c.Name,
				Obfuscated: c.Obfuscated,
				Origin:     c.Origin,
				MappedName: c.MappedName,
				Super:      c.SuperName(),
				Interfaces: c.InterfaceNames(),
				UID:        max(g.ClassUID(cid), 0),
			}
			for _, mid := range c.Methods {
				rec.Methods = append(rec.Methods, methodRecord(g, mid))
			}
			for _, fid := range c.Fields {
				f := g.Field(fid)
				rec.Fields = append(rec.Fields, FieldRecord{
					Name:       f.Name,
					Desc:       f.Desc,
					Static:     f.Static,
					Obfuscated: f.Obfuscated,
					Real:       f.Real,
					MappedName: f.MappedName,
					UID:        max(g.FieldUID(fid), 0),
				})
			}
			snap.Classes = append(snap.Classes, rec)

			if side != graph.SideA {
				continue
			}
			other := g.ClassMatch(cid)
			if other == graph.NoClass {
				continue
			}
			snap.Matches.Classes = append(snap.Matches.Classes, graph.ClassPair{A: c.Name, B: g.Class(other).Name})
			for _, mid := range c.Methods {
				if b := g.MethodMatch(mid); b != graph.NoMethod {
					snap.Matches.Methods = append(snap.Matches.Methods, graph.MemberPair{A: methodRef(g, mid), B: methodRef(g, b)})
				}
			}
			for _, fid := range c.Fields {
				if b := g.FieldMatch(fid); b != graph.NoField {
					snap.Matches.Fields = append(snap.Matches.Fields, graph.MemberPair{A: fieldRef(g, fid), B: fieldRef(g, b)})
				}
			}
		}
	}
	return snap
}

func methodRecord(g *graph.Graph, id graph.MethodID) MethodRecord {
	m := g.Method(id)
	rec := MethodRecord{
		Name:       m.Name,
		Desc:       m.Desc,
		Static:     m.Static,
		Obfuscated: m.Obfuscated,
		Real:       m.Real,
		MappedName: m.MappedName,
		UID:        max(g.MethodUID(id), 0),
		Insns:      m.Insns,
	}
	for _, a := range m.Args {
		rec.Args = append(rec.Args, VarRecord{Slot: a.Slot, Desc: a.Desc})
	}
	for _, v := range m.Vars {
		rec.Vars = append(rec.Vars, VarRecord{Slot: v.Slot, Desc: v.Desc, Start: v.Start, End: v.End})
	}
	for _, p := range m.Parents {
		rec.Parents = append(rec.Parents, methodRef(g, p))
	}
	return rec
}

func methodRef(g *graph.Graph, id graph.MethodID) graph.MemberRef {
	m := g.Method(id)
	return graph.MemberRef{Owner: g.Class(m.Owner).Name, Name: m.Name, Desc: m.Desc}
}

func fieldRef(g *graph.Graph, id graph.FieldID) graph.MemberRef {
	f := g.Field(id)
	return graph.MemberRef{Owner: g.Class(f.Owner).Name, Name: f.Name, Desc: f.Desc}
}

// SaveSnapshot writes g to path, gzip compressed when path ends in .gz.
func SaveSnapshot(path string, g *graph.Graph) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = file
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(file)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSnapshot(g))
}

// SortedClassNames lists the class names of one side in name order.
func SortedClassNames(g *graph.Graph, side graph.Side) []string {
	ids := g.Classes(side)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g.Class(id).Name
	}
	slices.Sort(names)
	return names
}
