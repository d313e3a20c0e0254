package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruinedyourlife/gluematch/utils/graph"
)

func TestGenerateMatchReport(t *testing.T) {
	g := snapshotGraph(t)
	_, err := g.AddClass(graph.SideB, graph.ClassInfo{Name: "w", Obfuscated: true, Origin: true})
	require.NoError(t, err)
	_, err = g.AddClass(graph.SideB, graph.ClassInfo{Name: "java/lang/Object"})
	require.NoError(t, err)
	require.NoError(t, g.Link())

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, GenerateMatchReport(g, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `Class Matches Report
====================


Package: (default)
------------------
a -> x (complete, 2/2 members)

Unmatched on side a
-------------------
b

Unmatched on side b
-------------------
w

Total matches: 1 across 1 packages
`, string(data))
}

func TestPackageOf(t *testing.T) {
	assert.Equal(t, "net/minecraft", packageOf("net/minecraft/Main"))
	assert.Equal(t, "(default)", packageOf("abc"))
}
