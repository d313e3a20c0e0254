// Package tiny writes glue mappings in the tiny v1 and v2 text formats.
package tiny

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrDuplicateMapping = errors.New("member mapped twice")

type Format uint8

const (
	FormatV1 Format = iota + 1
	FormatV2
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "v1", "tiny", "1":
		return FormatV1, nil
	case "v2", "tiny2", "2":
		return FormatV2, nil
	}
	return 0, fmt.Errorf("unknown mappings format %q", s)
}

func (f Format) String() string {
	switch f {
	case FormatV1:
		return "v1"
	case FormatV2:
		return "v2"
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// Namespaces name the three columns of a mapping file.
type Namespaces struct {
	Glue, Server, Client string
}

var DefaultNamespaces = Namespaces{Glue: "glue", Server: "server", Client: "client"}

// Writer receives mappings one symbol at a time. An empty server or client
// name means the symbol does not exist on that side.
type Writer interface {
	AcceptClass(glue, server, client string) error
	AcceptMethod(glueClass, glueName, desc, server, client string) error
	AcceptField(glueClass, glueName, desc, server, client string) error
	Close() error
}

type sink struct {
	w       *bufio.Writer
	closers []io.Closer
}

func newSink(w io.Writer, closers []io.Closer) *sink {
	return &sink{w: bufio.NewWriter(w), closers: closers}
}

func (s *sink) line(cols ...string) error {
	_, err := s.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

func (s *sink) close() error {
	err := s.w.Flush()
	for _, c := range s.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type v1Writer struct {
	*sink
}

// NewV1Writer writes the v1 header to w and returns a writer that emits
// one line per symbol as it arrives.
func NewV1Writer(w io.Writer, ns Namespaces) (Writer, error) {
	return newV1Writer(w, ns)
}

func newV1Writer(w io.Writer, ns Namespaces, closers ...io.Closer) (*v1Writer, error) {
	v := &v1Writer{newSink(w, closers)}
	if err := v.line("v1", ns.Glue, ns.Server, ns.Client); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *v1Writer) AcceptClass(glue, server, client string) error {
	return v.line("CLASS", "", glue, server, client)
}

func (v *v1Writer) AcceptMethod(glueClass, glueName, desc, server, client string) error {
	return v.line("METHOD", glueClass, desc, glueName, server, client)
}

func (v *v1Writer) AcceptField(glueClass, glueName, desc, server, client string) error {
	return v.line("FIELD", glueClass, desc, glueName, server, client)
}

func (v *v1Writer) Close() error {
	return v.close()
}

type memberState struct {
	name, desc, server, client string
}

type classState struct {
	name, server, client string
	methods, fields      []memberState
	seen                 map[string]bool
}

func (c *classState) add(kind string, list *[]memberState, m memberState) error {
	key := kind + " " + m.name + " " + m.desc
	if c.seen[key] {
		return fmt.Errorf("%s %s %s%s: %w", kind, c.name, m.name, m.desc, ErrDuplicateMapping)
	}
	c.seen[key] = true
	*list = append(*list, m)
	return nil
}

// v2Writer buffers everything and writes on Close, grouping members under
// their class in insertion order.
type v2Writer struct {
	*sink
	order   []*classState
	classes map[string]*classState
}

// NewV2Writer writes the v2 header to w. Entries are written on Close.
func NewV2Writer(w io.Writer, ns Namespaces) (Writer, error) {
	return newV2Writer(w, ns)
}

func newV2Writer(w io.Writer, ns Namespaces, closers ...io.Closer) (*v2Writer, error) {
	v := &v2Writer{sink: newSink(w, closers), classes: make(map[string]*classState)}
	if err := v.line("tiny", "2", "0", ns.Glue, ns.Server, ns.Client); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *v2Writer) class(name string) *classState {
	c, ok := v.classes[name]
	if !ok {
		c = &classState{name: name, seen: make(map[string]bool)}
		v.classes[name] = c
		v.order = append(v.order, c)
	}
	return c
}

func (v *v2Writer) AcceptClass(glue, server, client string) error {
	c := v.class(glue)
	c.server, c.client = server, client
	return nil
}

func (v *v2Writer) AcceptMethod(glueClass, glueName, desc, server, client string) error {
	c := v.class(glueClass)
	return c.add("method", &c.methods, memberState{glueName, desc, server, client})
}

func (v *v2Writer) AcceptField(glueClass, glueName, desc, server, client string) error {
	c := v.class(glueClass)
	return c.add("field", &c.fields, memberState{glueName, desc, server, client})
}

func (v *v2Writer) Close() error {
	err := v.flushClasses()
	if cerr := v.close(); err == nil {
		err = cerr
	}
	return err
}

func (v *v2Writer) flushClasses() error {
	for _, c := range v.order {
		if err := v.line("c", c.name, c.server, c.client); err != nil {
			return err
		}
		for _, m := range c.methods {
			if err := v.line("\tm", m.desc, m.name, m.server, m.client); err != nil {
				return err
			}
		}
		for _, f := range c.fields {
			if err := v.line("\tf", f.desc, f.name, f.server, f.client); err != nil {
				return err
			}
		}
	}
	return nil
}

// Create opens path for writing, optionally through gzip, and writes the
// header of the requested format. An existing file is replaced.
func Create(path string, format Format, compressed bool, ns Namespaces) (Writer, error) {
	if format != FormatV1 && format != FormatV2 {
		return nil, fmt.Errorf("create %s: unsupported format %s", path, format)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error opening glue export file at %s: %w", path, err)
	}

	var out io.Writer = file
	closers := []io.Closer{file}
	if compressed {
		zw := gzip.NewWriter(file)
		out = zw
		closers = []io.Closer{zw, file}
	}

	var w Writer
	if format == FormatV2 {
		w, err = newV2Writer(out, ns, closers...)
	} else {
		w, err = newV1Writer(out, ns, closers...)
	}
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, fmt.Errorf("writing header to %s: %w", path, err)
	}
	return w, nil
}
