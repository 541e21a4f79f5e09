package genome

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path, content string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestDecompress(t *testing.T) {
	dir := t.TempDir()

	writeGzip(t, filepath.Join(dir, "GCA_000009085.1.fna.gz"), ">NC_002163.1\nATGAATCCAAGC\n")
	writeGzip(t, filepath.Join(dir, "GCA_000015525.1.fna.gz"), ">NC_008787.1\nATGAAT\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.gz"), 0o755))

	out, err := Decompress(context.Background(), dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "GCA_000009085.1.fna"),
		filepath.Join(dir, "GCA_000015525.1.fna"),
	}, out)

	b, err := os.ReadFile(filepath.Join(dir, "GCA_000009085.1.fna"))
	require.NoError(t, err)
	assert.Equal(t, ">NC_002163.1\nATGAATCCAAGC\n", string(b))

	assert.NoFileExists(t, filepath.Join(dir, "GCA_000009085.1.fna.gz"))
	assert.DirExists(t, filepath.Join(dir, "old.gz"))
}

func TestDecompressCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.fna.gz"), []byte("not gzip"), 0o644))

	_, err := Decompress(context.Background(), dir, 1)
	require.Error(t, err)

	// The compressed file is kept and no partial output is left behind.
	assert.FileExists(t, filepath.Join(dir, "bad.fna.gz"))
	assert.NoFileExists(t, filepath.Join(dir, "bad.fna"))
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.fna", "a.fna", "c.fna.gz", "readme.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.fna"), 0o755))

	gs, err := List(dir)
	require.NoError(t, err)
	require.Len(t, gs, 2)

	assert.Equal(t, "a", gs[0].Name)
	assert.Equal(t, filepath.Join(dir, "a.fna"), gs[0].Path)
	assert.True(t, filepath.IsAbs(gs[1].Path))
	assert.Equal(t, "b", gs[1].Name)
}
