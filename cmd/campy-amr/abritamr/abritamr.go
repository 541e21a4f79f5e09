// Package abritamr predicts antimicrobial resistance determinants with
// AbritAMR and collects its summary files.
package abritamr

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campy-amr/tools/cmd/campy-amr/genome"
	"github.com/campy-amr/tools/cmd/campy-amr/logging"
	"github.com/campy-amr/tools/cmd/campy-amr/runner"
	"github.com/campy-amr/tools/cmd/campy-amr/uni"
)

// Program is the name of the AbritAMR executable.
const Program = "abritamr"

const (
	// ResultsDir is the directory under the output directory the summary
	// files are moved to.
	ResultsDir = "abritamr_results"

	SampleSheetName = "sample_sheet.txt"
	LogName         = "abritamr.log"
)

var ErrUnknownSpecies = errors.New("unknown species")

// Species supported for point mutation analysis.
var Species = []string{
	"Campylobacter",
	"Escherichia",
	"Klebsiella_pneumoniae",
	"Salmonella",
	"Staphylococcus_aureus",
	"Vibrio_cholerae",
}

// SummaryFiles are written by AbritAMR into its working directory.
var SummaryFiles = []string{
	"summary_matches.txt",
	"abritamr.txt",
	"summary_partials.txt",
	"summary_virulence.txt",
}

// ValidSpecies returns an error if s is not one of Species.
func ValidSpecies(s string) error {
	for _, x := range Species {
		if s == x {
			return nil
		}
	}

	return fmt.Errorf("%w '%s', expected one of %s", ErrUnknownSpecies, s, strings.Join(Species, ", "))
}

// Sample is a line of the sample sheet.
type Sample struct {
	Name string
	Path string
}

// WriteSampleSheet writes one "<name>\t<path>" line per genome and returns
// the number of entries.
func WriteSampleSheet(path string, genomes genome.Genomes) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	for _, g := range genomes {
		if _, err := fmt.Fprintf(f, "%s\t%s\n", g.Name, g.Path); err != nil {
			f.Close()
			return 0, err
		}
	}

	if err := f.Close(); err != nil {
		return 0, err
	}

	if len(genomes) == 0 {
		logging.L.Warn("no valid entries found, sample sheet is empty", zap.String("path", path))
	} else {
		logging.L.Info("sample sheet created", zap.String("path", path), zap.Int("entries", len(genomes)))
	}

	return len(genomes), nil
}

// ReadSampleSheet parses a sample sheet. Every line must have exactly two
// tab-separated columns.
func ReadSampleSheet(r io.Reader) ([]*Sample, error) {
	cr := csv.NewReader(uni.New(r))

	cr.Comma = '\t'
	cr.FieldsPerRecord = 2
	cr.LazyQuotes = true

	var samples []*Sample

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		samples = append(samples, &Sample{
			Name: strings.TrimSpace(row[0]),
			Path: strings.TrimSpace(row[1]),
		})
	}

	return samples, nil
}

// ReadSampleSheetFile parses the sample sheet at path.
func ReadSampleSheetFile(path string) ([]*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadSampleSheet(f)
}

type Options struct {
	SampleSheet string
	OutDir      string

	// WorkDir is where AbritAMR is run and writes its files. It defaults
	// to OutDir.
	WorkDir string

	Jobs    int
	Species string
}

// Command builds the AbritAMR invocation.
func Command(opts Options) runner.Command {
	return runner.Command{
		Name: Program,
		Args: []string{
			"run",
			"-j", strconv.Itoa(opts.Jobs),
			"--species", opts.Species,
			"-c", opts.SampleSheet,
		},
		Dir:     opts.WorkDir,
		LogFile: filepath.Join(opts.OutDir, LogName),
	}
}

// Run runs AbritAMR over the sample sheet, moves the summary files to
// <out>/abritamr_results and removes the per-sample directories AbritAMR
// leaves in the working directory. Collection and cleanup happen even if the
// tool fails. Tool and collection errors are joined. The moved file paths are
// returned.
func Run(ctx context.Context, r runner.Runner, opts Options) ([]string, error) {
	if err := ValidSpecies(opts.Species); err != nil {
		return nil, err
	}

	if opts.WorkDir == "" {
		opts.WorkDir = opts.OutDir
	}

	sheet, err := filepath.Abs(opts.SampleSheet)
	if err != nil {
		return nil, err
	}
	opts.SampleSheet = sheet

	samples, err := ReadSampleSheetFile(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sample sheet: %w", err)
	}

	resultsDir := filepath.Join(opts.OutDir, ResultsDir)
	if err := os.MkdirAll(resultsDir, 0o775); err != nil {
		return nil, err
	}

	logging.L.Info("starting AMR prediction", zap.String("species", opts.Species), zap.Int("samples", len(samples)))

	runErr := r.Run(ctx, Command(opts))
	if runErr != nil {
		logging.L.Warn("abritamr failed", zap.Error(runErr))
	}

	moved, err := collect(opts.WorkDir, resultsDir)

	cleanup(opts.WorkDir, samples)

	return moved, errors.Join(runErr, err)
}

func collect(workDir, resultsDir string) ([]string, error) {
	var moved []string

	for _, name := range SummaryFiles {
		src := filepath.Join(workDir, name)

		if fi, err := os.Stat(src); err != nil || !fi.Mode().IsRegular() {
			continue
		}

		dst := filepath.Join(resultsDir, name)
		if err := move(src, dst); err != nil {
			return moved, fmt.Errorf("moving %s: %w", name, err)
		}

		moved = append(moved, dst)
	}

	return moved, nil
}

// move renames src to dst, copying across file systems when needed.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}

func cleanup(workDir string, samples []*Sample) {
	for _, s := range samples {
		// Only plain names; never follow a sample name out of the work dir.
		if s.Name == "" || s.Name != filepath.Base(s.Name) || s.Name == "." || s.Name == ".." {
			continue
		}

		dir := filepath.Join(workDir, s.Name)

		fi, err := os.Lstat(dir)
		if err != nil || !fi.IsDir() {
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			logging.L.Warn("failed to remove sample directory", zap.String("path", dir), zap.Error(err))
			continue
		}

		logging.L.Debug("removed sample directory", zap.String("path", dir))
	}
}
