package abritamr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campy-amr/tools/cmd/campy-amr/genome"
	"github.com/campy-amr/tools/cmd/campy-amr/runner"
	"github.com/campy-amr/tools/cmd/campy-amr/runner/runnertest"
)

func TestSampleSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), SampleSheetName)

	n, err := WriteSampleSheet(path, genome.Genomes{
		{Name: "GCA_000009085.1", Path: "/data/GCA_000009085.1.fna"},
		{Name: "GCA_000015525.1", Path: "/data/GCA_000015525.1.fna"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GCA_000009085.1\t/data/GCA_000009085.1.fna\nGCA_000015525.1\t/data/GCA_000015525.1.fna\n", string(b))

	samples, err := ReadSampleSheetFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, &Sample{Name: "GCA_000015525.1", Path: "/data/GCA_000015525.1.fna"}, samples[1])
}

func TestEmptySampleSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), SampleSheetName)

	n, err := WriteSampleSheet(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	samples, err := ReadSampleSheetFile(path)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestReadSampleSheetBadRow(t *testing.T) {
	_, err := ReadSampleSheet(strings.NewReader("a\t/a.fna\nb\n"))
	require.Error(t, err)
}

func TestValidSpecies(t *testing.T) {
	assert.NoError(t, ValidSpecies("Campylobacter"))
	assert.ErrorIs(t, ValidSpecies("Campylobacter_jejuni"), ErrUnknownSpecies)
}

// fakeAbritamr writes what abritamr leaves in its working directory.
func fakeAbritamr(t *testing.T, samples ...string) func(runner.Command) error {
	return func(cmd runner.Command) error {
		for _, name := range []string{"summary_matches.txt", "abritamr.txt", "summary_partials.txt"} {
			require.NoError(t, os.WriteFile(filepath.Join(cmd.Dir, name), []byte("Isolate\n"), 0o644))
		}
		for _, s := range samples {
			require.NoError(t, os.MkdirAll(filepath.Join(cmd.Dir, s, "amrfinder"), 0o755))
		}
		return nil
	}
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	work := t.TempDir()

	sheet := filepath.Join(out, SampleSheetName)
	_, err := WriteSampleSheet(sheet, genome.Genomes{
		{Name: "a", Path: "/data/a.fna"},
		{Name: "b", Path: "/data/b.fna"},
	})
	require.NoError(t, err)

	// Unrelated directory in the work dir must survive cleanup.
	require.NoError(t, os.Mkdir(filepath.Join(work, "keep"), 0o755))

	rec := &runnertest.Recorder{Func: fakeAbritamr(t, "a", "b")}

	moved, err := Run(context.Background(), rec, Options{
		SampleSheet: sheet,
		OutDir:      out,
		WorkDir:     work,
		Jobs:        4,
		Species:     "Campylobacter",
	})
	require.NoError(t, err)

	cmds := rec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "abritamr", cmds[0].Name)
	assert.Equal(t, []string{"run", "-j", "4", "--species", "Campylobacter", "-c", sheet}, cmds[0].Args)
	assert.Equal(t, filepath.Join(out, LogName), cmds[0].LogFile)

	results := filepath.Join(out, ResultsDir)
	assert.Equal(t, []string{
		filepath.Join(results, "summary_matches.txt"),
		filepath.Join(results, "abritamr.txt"),
		filepath.Join(results, "summary_partials.txt"),
	}, moved)
	assert.NoFileExists(t, filepath.Join(work, "abritamr.txt"))

	assert.NoDirExists(t, filepath.Join(work, "a"))
	assert.NoDirExists(t, filepath.Join(work, "b"))
	assert.DirExists(t, filepath.Join(work, "keep"))
}

func TestRunToolFailureStillCollects(t *testing.T) {
	out := t.TempDir()

	sheet := filepath.Join(out, SampleSheetName)
	_, err := WriteSampleSheet(sheet, genome.Genomes{{Name: "a", Path: "/data/a.fna"}})
	require.NoError(t, err)

	fake := fakeAbritamr(t, "a")
	rec := &runnertest.Recorder{
		Func: func(cmd runner.Command) error {
			require.NoError(t, fake(cmd))
			return errors.New("amrfinder database missing")
		},
	}

	moved, err := Run(context.Background(), rec, Options{
		SampleSheet: sheet,
		OutDir:      out,
		Jobs:        1,
		Species:     "Campylobacter",
	})
	require.EqualError(t, err, "amrfinder database missing")
	assert.Len(t, moved, 3)

	// Work dir defaults to the output directory.
	assert.Equal(t, out, rec.Commands()[0].Dir)
	assert.NoDirExists(t, filepath.Join(out, "a"))
}

func TestRunToolAndCollectFailure(t *testing.T) {
	out := t.TempDir()

	sheet := filepath.Join(out, SampleSheetName)
	_, err := WriteSampleSheet(sheet, genome.Genomes{{Name: "a", Path: "/data/a.fna"}})
	require.NoError(t, err)

	// A directory in place of a summary file makes the move fail.
	require.NoError(t, os.MkdirAll(filepath.Join(out, ResultsDir, "abritamr.txt"), 0o755))

	toolErr := errors.New("amrfinder database missing")
	fake := fakeAbritamr(t, "a")
	rec := &runnertest.Recorder{
		Func: func(cmd runner.Command) error {
			require.NoError(t, fake(cmd))
			return toolErr
		},
	}

	moved, err := Run(context.Background(), rec, Options{
		SampleSheet: sheet,
		OutDir:      out,
		Jobs:        1,
		Species:     "Campylobacter",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, toolErr)
	assert.Contains(t, err.Error(), "moving abritamr.txt")
	assert.Equal(t, []string{filepath.Join(out, ResultsDir, "summary_matches.txt")}, moved)

	assert.NoDirExists(t, filepath.Join(out, "a"))
}

func TestRunUnknownSpecies(t *testing.T) {
	_, err := Run(context.Background(), &runnertest.Recorder{}, Options{Species: "Shigella"})
	require.ErrorIs(t, err, ErrUnknownSpecies)
}
