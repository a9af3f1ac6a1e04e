package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Foo!!__Bar 2", "Foo-Bar-2"},
		{"Naruto Shippuden Episode 12", "Naruto-Shippuden-Episode-12"},
		{"Pokémon: The Série", "Pokemon-The-Serie"},
		{"  Leading and trailing  ", "-Leading-and-trailing-"},
		{"One-Piece-OVA", "One-Piece-OVA"},
		{"!!!", "untitled"},
		{"", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFileName(tt.in))
		})
	}
}

func TestNormalizeFileNameIdempotent(t *testing.T) {
	inputs := []string{
		"Foo!!__Bar 2",
		"Ångström -- Episode #7 (HD)",
		"a__b..c",
		"進撃の巨人 1",
		"---",
	}

	for _, in := range inputs {
		once := NormalizeFileName(in)
		assert.Equal(t, once, NormalizeFileName(once), "input %q", in)
		assert.NotContains(t, once, "--")
	}
}

func writeSized(t *testing.T, path string, size int64) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

func TestIsDownloaded(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.mp4")
	assert.False(t, IsDownloaded(missing, DefaultMinFileSize))

	small := filepath.Join(dir, "small.mp4")
	writeSized(t, small, DefaultMinFileSize-1)
	assert.False(t, IsDownloaded(small, DefaultMinFileSize))

	exact := filepath.Join(dir, "exact.mp4")
	writeSized(t, exact, DefaultMinFileSize)
	assert.True(t, IsDownloaded(exact, DefaultMinFileSize))

	assert.False(t, IsDownloaded(dir, 0), "directories never count")
}

func TestManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "anime")

	m, err := NewManager(dir, "mp4", 10)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	path := m.PathFor("Foo!!__Bar 2")
	assert.Equal(t, filepath.Join(dir, "Foo-Bar-2.mp4"), path)
	assert.False(t, m.IsDownloaded(path))

	f, err := m.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789abc"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.True(t, m.IsDownloaded(path))
	assert.Equal(t, int64(13), FileSize(path))

	// a new attempt starts from an empty file
	f, err = m.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, int64(0), FileSize(path))
	assert.False(t, m.IsDownloaded(path))
}

func TestNewManagerRequiresDirectory(t *testing.T) {
	_, err := NewManager("", ".mp4", 1)
	assert.Error(t, err)
}
