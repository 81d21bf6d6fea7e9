package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONReadJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "doc.json")

	in := map[string]any{"name": "direct-domains", "count": float64(3)}
	require.NoError(t, WriteJSON(path, in))

	var out map[string]any
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in, out)
}

func TestWriteJSONEndsWithNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, WriteJSON(path, map[string]int{"a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 0 && data[len(data)-1] == '\n')
}

func TestWriteTextLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	require.NoError(t, WriteText(path, "hello\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadJSONMissingFile(t *testing.T) {
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &struct{}{})
	assert.Error(t, err)
}

func TestReadJSONMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := ReadJSON(path, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "nope")))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
