package maps_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lguibr/sc2-proxy/maps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMapResolvesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Acropolis.SC2Map"), []byte("x"), 0o644))

	r := maps.NewResolver(dir)
	path, ok := r.FindMap("Acropolis")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Acropolis.SC2Map"), path)
}

func TestFindMapMissing(t *testing.T) {
	r := maps.NewResolver(t.TempDir())
	_, ok := r.FindMap("Nonexistent")
	assert.False(t, ok)
}

func TestFindMapEmptyName(t *testing.T) {
	r := maps.NewResolver(t.TempDir())
	_, ok := r.FindMap("")
	assert.False(t, ok)
}

func TestFindMapSearchesMultipleDirsInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "Map.SC2Map"), []byte("x"), 0o644))

	r := maps.NewResolver(first, second)
	path, ok := r.FindMap("Map")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, "Map.SC2Map"), path)
}
