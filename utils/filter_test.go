package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcluderFor(t *testing.T) {
	ex, err := ExcluderFor(nil)
	require.NoError(t, err)
	assert.Nil(t, ex)

	ex, err = ExcluderFor([]string{`^net/minecraft/`, `^com/mojang/blaze3d/`})
	require.NoError(t, err)
	assert.True(t, ex("net/minecraft/server/Main"))
	assert.True(t, ex("com/mojang/blaze3d/Blaze"))
	assert.False(t, ex("abc"))

	_, err = ExcluderFor([]string{"[a-"})
	assert.Error(t, err)
}

func TestReadPatternFile(t *testing.T) {
	path := writeFile(t, "exclude.txt", "# deobfuscated upstream\n^net/minecraft/\n\n  // launcher\n^com/mojang/  \n")

	patterns, err := ReadPatternFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"^net/minecraft/", "^com/mojang/"}, patterns)

	_, err = ReadPatternFile(path + ".missing")
	assert.Error(t, err)

	ex, err := ExcluderFor([]string{"@" + path, "^a$"})
	require.NoError(t, err)
	assert.True(t, ex("com/mojang/Util"))
	assert.True(t, ex("a"))
	assert.False(t, ex("ab"))

	_, err = ExcluderFor([]string{"@" + path + ".missing"})
	assert.Error(t, err)
}
