package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campy-amr/tools/cmd/campy-amr/abritamr"
	"github.com/campy-amr/tools/cmd/campy-amr/runner"
	"github.com/campy-amr/tools/cmd/campy-amr/runner/runnertest"
)

func setupGenomes(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, "GCA_000009085.1.fna.gz"))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(">NC_002163.1\nATG\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "GCA_000015525.1.fna"), []byte(">NC_008787.1\nATG\n"), 0o644))

	return dir
}

func fakeTools(t *testing.T) *runnertest.Recorder {
	return &runnertest.Recorder{
		Func: func(cmd runner.Command) error {
			switch cmd.Name {
			case "prokka":
				out := cmd.Args[5]
				require.NoError(t, os.MkdirAll(out, 0o755))
				return os.WriteFile(filepath.Join(out, "PROKKA.gff"), nil, 0o644)
			case "abritamr":
				return os.WriteFile(filepath.Join(cmd.Dir, "abritamr.txt"), []byte("Isolate\tQuinolone\n"), 0o644)
			}
			return errors.New("unexpected command")
		},
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{InputDir: "in", OutputDir: "out", Threads: 4, Kingdom: "Bacteria", Species: "Campylobacter"}
	require.NoError(t, opts.Validate())
	assert.Equal(t, []string{"abritamr"}, opts.Tools())

	opts.Annotate = true
	assert.Equal(t, []string{"prokka", "abritamr"}, opts.Tools())

	bad := opts
	bad.Species = "Shigella"
	assert.ErrorIs(t, bad.Validate(), abritamr.ErrUnknownSpecies)

	bad = opts
	bad.Threads = 0
	assert.Error(t, bad.Validate())

	bad = opts
	bad.Kingdom = "Fungi"
	assert.Error(t, bad.Validate())

	// The kingdom is only checked when annotating.
	bad.Annotate = false
	assert.NoError(t, bad.Validate())
}

func TestRun(t *testing.T) {
	in := setupGenomes(t)
	out := filepath.Join(t.TempDir(), "results")
	rec := fakeTools(t)

	p := New(rec, "0.1.0", Options{
		InputDir:  in,
		OutputDir: out,
		Threads:   2,
		Kingdom:   "Bacteria",
		Species:   "Campylobacter",
		Annotate:  true,
	})

	m, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"GCA_000009085.1", "GCA_000015525.1"}, m.Genomes)
	assert.Equal(t, []string{filepath.Join(out, abritamr.ResultsDir, "abritamr.txt")}, m.Results)

	var names, statuses []string
	for _, s := range m.Steps {
		names = append(names, s.Name)
		statuses = append(statuses, s.Status)
	}
	assert.Equal(t, []string{"decompress", "annotate", "sample-sheet", "abritamr"}, names)
	assert.Equal(t, []string{StatusOK, StatusOK, StatusOK, StatusOK}, statuses)

	// Two prokka runs and one abritamr run.
	assert.Len(t, rec.Commands(), 3)

	assert.FileExists(t, filepath.Join(out, "prokka_results", "GCA_000009085.1", "GCA_000009085.1_PROKKA.gff"))
	assert.FileExists(t, filepath.Join(in, "GCA_000009085.1.fna"))

	b, err := os.ReadFile(filepath.Join(out, ManifestName))
	require.NoError(t, err)

	var written Manifest
	require.NoError(t, json.Unmarshal(b, &written))
	assert.Equal(t, m.ID, written.ID)
	assert.Equal(t, "0.1.0", written.ToolVersion)
	assert.Equal(t, "Campylobacter", written.Options.Species)
}

func TestRunWithoutAnnotation(t *testing.T) {
	in := setupGenomes(t)
	out := t.TempDir()
	rec := fakeTools(t)

	m, err := New(rec, "", Options{InputDir: in, OutputDir: out, Threads: 1, Species: "Campylobacter"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, m.Steps[1].Status)
	require.Len(t, rec.Commands(), 1)
	assert.Equal(t, "abritamr", rec.Commands()[0].Name)
}

func TestRunToolFailure(t *testing.T) {
	in := setupGenomes(t)
	out := t.TempDir()

	rec := &runnertest.Recorder{
		Func: func(cmd runner.Command) error {
			return errors.New("abritamr: command not configured")
		},
	}

	m, err := New(rec, "", Options{InputDir: in, OutputDir: out, Threads: 1, Species: "Campylobacter"}).Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Failed())

	last := m.Steps[len(m.Steps)-1]
	assert.Equal(t, "abritamr", last.Name)
	assert.Equal(t, StatusFailed, last.Status)
	assert.Contains(t, last.Error, "command not configured")

	assert.FileExists(t, filepath.Join(out, ManifestName))
}

func TestRunNoGenomes(t *testing.T) {
	_, err := New(&runnertest.Recorder{}, "", Options{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
		Threads:   1,
		Species:   "Campylobacter",
	}).Run(context.Background())
	require.ErrorIs(t, err, ErrNoGenomes)
}
