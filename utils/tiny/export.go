package tiny

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/ruinedyourlife/gluematch/utils/glue"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

var ErrMissingUID = errors.New("obfuscated symbol has no uid")

type ExportOptions struct {
	// Server is the side written to the server column.
	Server   graph.Side
	Prefixes glue.Prefixes
	// SkipServer and SkipClient leave classes out by name, matching the
	// predicates used when the UIDs were assigned.
	SkipServer func(name string) bool
	SkipClient func(name string) bool
	Progress   func(float64)
}

type exporter struct {
	g      *graph.Graph
	w      Writer
	opts   ExportOptions
	server *glue.Namer
	client *glue.Namer
}

// Export writes glue mappings for every obfuscated symbol: first the
// matched classes, then the server-only classes, then the client-only
// ones, each group sorted by name. The caller closes w.
func Export(g *graph.Graph, w Writer, opts ExportOptions) error {
	if opts.Prefixes == (glue.Prefixes{}) {
		opts.Prefixes = glue.DefaultPrefixes
	}
	clientSide := opts.Server.Other()
	e := &exporter{
		g:      g,
		w:      w,
		opts:   opts,
		server: glue.NewNamer(g, opts.Server, opts.Prefixes),
		client: glue.NewNamer(g, clientSide, opts.Prefixes),
	}

	var union, serverOnly, clientOnly []graph.ClassID
	for _, c := range g.Classes(opts.Server) {
		if !g.Class(c).Origin || skipped(opts.SkipServer, g.Class(c).Name) {
			continue
		}
		if g.ClassMatch(c) != graph.NoClass {
			union = append(union, c)
		} else {
			serverOnly = append(serverOnly, c)
		}
	}
	for _, c := range g.Classes(clientSide) {
		if !g.Class(c).Origin || skipped(opts.SkipClient, g.Class(c).Name) {
			continue
		}
		if g.ClassMatch(c) == graph.NoClass {
			clientOnly = append(clientOnly, c)
		}
	}
	for _, list := range [][]graph.ClassID{union, serverOnly, clientOnly} {
		slices.SortFunc(list, func(a, b graph.ClassID) int {
			return cmp.Compare(g.Class(a).Name, g.Class(b).Name)
		})
	}

	total := float64(len(union) + len(serverOnly) + len(clientOnly))
	done := 0
	step := func() {
		done++
		if opts.Progress != nil {
			opts.Progress(float64(done) / total)
		}
	}

	for _, c := range union {
		if err := e.matched(c); err != nil {
			return err
		}
		step()
	}
	for _, c := range serverOnly {
		if err := e.single(c, e.server, true); err != nil {
			return err
		}
		step()
	}
	for _, c := range clientOnly {
		if err := e.single(c, e.client, false); err != nil {
			return err
		}
		step()
	}
	return nil
}

func skipped(pred func(string) bool, name string) bool {
	return pred != nil && pred(name)
}

func (e *exporter) className(c graph.ClassID, namer *glue.Namer) (string, error) {
	cls := e.g.Class(c)
	if !cls.Obfuscated {
		return cls.Name, nil
	}
	if cls.MappedName == "" && e.g.ClassUID(c) <= 0 {
		return "", fmt.Errorf("class %s: %w", cls.Name, ErrMissingUID)
	}
	return namer.Class(cls.Name), nil
}

func (e *exporter) matched(c graph.ClassID) error {
	g := e.g
	other := g.ClassMatch(c)
	glueClass, err := e.className(c, e.server)
	if err != nil {
		return err
	}
	if g.Class(c).Obfuscated {
		if err := e.w.AcceptClass(glueClass, g.Class(c).Name, g.Class(other).Name); err != nil {
			return err
		}
	}

	for _, m := range g.Class(c).Methods {
		if !g.Method(m).Obfuscated {
			continue
		}
		client := ""
		if b := g.MethodMatch(m); b != graph.NoMethod {
			client = g.Method(b).Name
		}
		if err := e.method(glueClass, m, e.server, g.Method(m).Name, client); err != nil {
			return err
		}
	}
	for _, m := range g.Class(other).Methods {
		if g.Method(m).Obfuscated && g.MethodMatch(m) == graph.NoMethod {
			if err := e.method(glueClass, m, e.client, "", g.Method(m).Name); err != nil {
				return err
			}
		}
	}

	for _, f := range g.Class(c).Fields {
		if !g.Field(f).Obfuscated {
			continue
		}
		client := ""
		if b := g.FieldMatch(f); b != graph.NoField {
			client = g.Field(b).Name
		}
		if err := e.field(glueClass, f, e.server, g.Field(f).Name, client); err != nil {
			return err
		}
	}
	for _, f := range g.Class(other).Fields {
		if g.Field(f).Obfuscated && g.FieldMatch(f) == graph.NoField {
			if err := e.field(glueClass, f, e.client, "", g.Field(f).Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) single(c graph.ClassID, namer *glue.Namer, server bool) error {
	g := e.g
	cls := g.Class(c)
	glueClass, err := e.className(c, namer)
	if err != nil {
		return err
	}
	names := func(name string) (string, string) {
		if server {
			return name, ""
		}
		return "", name
	}

	if cls.Obfuscated {
		s, cl := names(cls.Name)
		if err := e.w.AcceptClass(glueClass, s, cl); err != nil {
			return err
		}
	}
	for _, m := range cls.Methods {
		if g.Method(m).Obfuscated {
			s, cl := names(g.Method(m).Name)
			if err := e.method(glueClass, m, namer, s, cl); err != nil {
				return err
			}
		}
	}
	for _, f := range cls.Fields {
		if g.Field(f).Obfuscated {
			s, cl := names(g.Field(f).Name)
			if err := e.field(glueClass, f, namer, s, cl); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *exporter) method(glueClass string, m graph.MethodID, namer *glue.Namer, server, client string) error {
	g := e.g
	method := g.Method(m)
	if method.MappedName == "" && g.MethodUID(m) <= 0 && !e.parentSkipped(m) {
		return fmt.Errorf("method %s: %w", g.MethodString(m), ErrMissingUID)
	}
	return e.w.AcceptMethod(glueClass, namer.Method(m), namer.Desc(method.Desc), server, client)
}

func (e *exporter) field(glueClass string, f graph.FieldID, namer *glue.Namer, server, client string) error {
	g := e.g
	field := g.Field(f)
	if field.MappedName == "" && g.FieldUID(f) <= 0 {
		return fmt.Errorf("field %s: %w", g.FieldString(f), ErrMissingUID)
	}
	return e.w.AcceptField(glueClass, namer.Field(f), namer.Desc(field.Desc), server, client)
}

// parentSkipped reports whether m overrides a method of a skipped class,
// in which case the allocator left it without a UID.
func (e *exporter) parentSkipped(m graph.MethodID) bool {
	g := e.g
	for _, p := range g.Method(m).Parents {
		owner := g.Class(g.Method(p).Owner)
		pred := e.opts.SkipClient
		if owner.Side == e.opts.Server {
			pred = e.opts.SkipServer
		}
		if skipped(pred, owner.Name) {
			return true
		}
	}
	return false
}
