package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileLimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	t.Run("within limit", func(t *testing.T) {
		data, err := ReadFileLimited(path, 100)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("exactly at limit", func(t *testing.T) {
		data, err := ReadFileLimited(path, 5)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadFileLimited(path, 4)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFileLimited(filepath.Join(dir, "nope.txt"), 100)
		assert.Error(t, err)
	})
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0o644))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	// Overwrite is atomic too.
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0o644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp droppings left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0o600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "ghost")))
}
