package tiny

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruinedyourlife/gluematch/utils/glue"
	"github.com/ruinedyourlife/gluematch/utils/graph"
)

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

func exportGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	class := func(side graph.Side, name string) graph.ClassID {
		id, err := g.AddClass(side, graph.ClassInfo{Name: name, Obfuscated: true, Origin: true})
		require.NoError(t, err)
		return id
	}
	a := class(graph.SideA, "a")
	class(graph.SideA, "b")
	x := class(graph.SideB, "x")
	class(graph.SideB, "y")

	m, err := g.AddMethod(a, graph.MethodInfo{Name: "m", Desc: "(La;)V", Obfuscated: true, Real: true})
	require.NoError(t, err)
	n, err := g.AddMethod(x, graph.MethodInfo{Name: "n", Desc: "(Lx;)V", Obfuscated: true, Real: true})
	require.NoError(t, err)
	_, err = g.AddField(x, graph.FieldInfo{Name: "f", Desc: "I", Obfuscated: true, Real: true})
	require.NoError(t, err)
	require.NoError(t, g.Link())

	require.NoError(t, g.MatchClasses(a, x))
	require.NoError(t, g.MatchMethods(m, n))
	return g
}

func TestExportV1(t *testing.T) {
	g := exportGraph(t)
	_, err := glue.Assign(g, nil, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := NewV1Writer(&buf, DefaultNamespaces)
	require.NoError(t, err)

	var last float64
	require.NoError(t, Export(g, w, ExportOptions{Server: graph.SideA, Progress: func(f float64) { last = f }}))
	require.NoError(t, w.Close())

	assert.Equal(t, lines(
		"v1\tglue\tserver\tclient",
		"CLASS\t\tclass_1\ta\tx",
		"METHOD\tclass_1\t(Lclass_1;)V\tmethod_1\tm\tn",
		"FIELD\tclass_1\tI\tfield_1\t\tf",
		"CLASS\t\tclass_2\tb\t",
		"CLASS\t\tclass_3\t\ty",
	), buf.String())
	assert.Equal(t, 1.0, last)
}

func TestExportClientAsServer(t *testing.T) {
	g := exportGraph(t)
	_, err := glue.Assign(g, nil, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := NewV1Writer(&buf, Namespaces{Glue: "g", Server: "s", Client: "c"})
	require.NoError(t, err)
	require.NoError(t, Export(g, w, ExportOptions{Server: graph.SideB}))
	require.NoError(t, w.Close())

	assert.Equal(t, lines(
		"v1\tg\ts\tc",
		"CLASS\t\tclass_1\tx\ta",
		"METHOD\tclass_1\t(Lclass_1;)V\tmethod_1\tn\tm",
		"FIELD\tclass_1\tI\tfield_1\tf\t",
		"CLASS\t\tclass_3\ty\t",
		"CLASS\t\tclass_2\t\tb",
	), buf.String())
}

func TestExportRequiresUIDs(t *testing.T) {
	g := exportGraph(t)

	var buf bytes.Buffer
	w, err := NewV1Writer(&buf, DefaultNamespaces)
	require.NoError(t, err)
	assert.ErrorIs(t, Export(g, w, ExportOptions{Server: graph.SideA}), ErrMissingUID)
}

func TestExportHonorsSkips(t *testing.T) {
	g := exportGraph(t)
	skipB := func(name string) bool { return name == "b" }
	_, err := glue.Assign(g, glue.SideSkipper(skipB, nil), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := NewV1Writer(&buf, DefaultNamespaces)
	require.NoError(t, err)
	require.NoError(t, Export(g, w, ExportOptions{Server: graph.SideA, SkipServer: skipB}))
	require.NoError(t, w.Close())

	assert.NotContains(t, buf.String(), "\tb\t")
	assert.Contains(t, buf.String(), "CLASS\t\tclass_2\t\ty\n")
}

func TestV2GroupsMembersByClass(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewV2Writer(&buf, DefaultNamespaces)
	require.NoError(t, err)

	require.NoError(t, w.AcceptClass("c1", "a", "x"))
	require.NoError(t, w.AcceptMethod("c1", "m1", "()V", "a", "x"))
	require.NoError(t, w.AcceptClass("c2", "b", ""))
	require.NoError(t, w.AcceptField("c1", "f1", "I", "", "y"))
	require.NoError(t, w.AcceptMethod("c1", "m2", "(I)V", "c", ""))
	assert.ErrorIs(t, w.AcceptMethod("c1", "m1", "()V", "d", ""), ErrDuplicateMapping)
	require.NoError(t, w.Close())

	assert.Equal(t, lines(
		"tiny\t2\t0\tglue\tserver\tclient",
		"c\tc1\ta\tx",
		"\tm\t()V\tm1\ta\tx",
		"\tm\t(I)V\tm2\tc\t",
		"\tf\tI\tf1\t\ty",
		"c\tc2\tb\t",
	), buf.String())
}

func TestCreateCompressed(t *testing.T) {
	for _, format := range []Format{FormatV1, FormatV2} {
		t.Run(format.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "glue.tiny.gz")
			w, err := Create(path, format, true, DefaultNamespaces)
			require.NoError(t, err)
			require.NoError(t, w.AcceptClass("class_1", "a", "x"))
			require.NoError(t, w.Close())

			file, err := os.Open(path)
			require.NoError(t, err)
			defer file.Close()
			zr, err := gzip.NewReader(file)
			require.NoError(t, err)
			data, err := io.ReadAll(zr)
			require.NoError(t, err)

			want := lines("v1\tglue\tserver\tclient", "CLASS\t\tclass_1\ta\tx")
			if format == FormatV2 {
				want = lines("tiny\t2\t0\tglue\tserver\tclient", "c\tclass_1\ta\tx")
			}
			assert.Equal(t, want, string(data))
		})
	}
}

func TestCreatePlainReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glue.tiny")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	w, err := Create(path, FormatV1, false, DefaultNamespaces)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1\tglue\tserver\tclient\n", string(data))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("V2")
	require.NoError(t, err)
	assert.Equal(t, FormatV2, f)
	_, err = ParseFormat("srg")
	assert.Error(t, err)
}
