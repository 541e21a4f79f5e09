// Package prokka annotates genome assemblies with Prokka.
package prokka

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campy-amr/tools/cmd/campy-amr/genome"
	"github.com/campy-amr/tools/cmd/campy-amr/logging"
	"github.com/campy-amr/tools/cmd/campy-amr/runner"
)

// Program is the name of the Prokka executable.
const Program = "prokka"

// ResultsDir is the directory under the output directory that holds one
// sub-directory per genome.
const ResultsDir = "prokka_results"

var ErrUnknownKingdom = errors.New("unknown kingdom")

// Kingdoms accepted by Prokka's --kingdom option.
var Kingdoms = []string{
	"Bacteria",
	"Archaea",
	"Viruses",
	"Mitochondria",
	"Plasmids",
}

// ValidKingdom returns an error if k is not one of Kingdoms.
func ValidKingdom(k string) error {
	for _, x := range Kingdoms {
		if k == x {
			return nil
		}
	}

	return fmt.Errorf("%w '%s', expected one of %s", ErrUnknownKingdom, k, strings.Join(Kingdoms, ", "))
}

type Options struct {
	OutDir   string
	CPUs     int
	Kingdom  string
	AddGenes bool

	// Jobs is the number of genomes annotated at once.
	Jobs int
}

// Command builds the Prokka invocation for a genome.
func Command(g *genome.Genome, opts Options) runner.Command {
	args := []string{
		"--cpus", strconv.Itoa(opts.CPUs),
		"--kingdom", opts.Kingdom,
		"--outdir", filepath.Join(opts.OutDir, ResultsDir, g.Name),
		"--force",
		"--norrna",
		"--notrna",
	}

	if opts.AddGenes {
		args = append(args, "--addgenes")
	}

	args = append(args, g.Path)

	return runner.Command{
		Name:    Program,
		Args:    args,
		LogFile: filepath.Join(opts.OutDir, fmt.Sprintf("%s_prokka.log", g.Name)),
	}
}

// GenomeError is a failure annotating a single genome.
type GenomeError struct {
	Genome string
	Err    error
}

func (e *GenomeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Genome, e.Err)
}

func (e *GenomeError) Unwrap() error {
	return e.Err
}

// Errors aggregates per-genome failures.
type Errors []*GenomeError

func (es Errors) Error() string {
	strs := make([]string, len(es))

	for i, e := range es {
		strs[i] = fmt.Sprintf("* %s", e)
	}

	return fmt.Sprintf("annotation failed for %d genomes:\n%s", len(es), strings.Join(strs, "\n"))
}

// Annotate runs Prokka on every genome. A failure for one genome does not
// stop the others; all failures are returned together as Errors.
func Annotate(ctx context.Context, r runner.Runner, genomes genome.Genomes, opts Options) error {
	if err := ValidKingdom(opts.Kingdom); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(opts.OutDir, ResultsDir), 0o775); err != nil {
		return err
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var (
		mu   sync.Mutex
		errs Errors
	)

	var g errgroup.Group
	g.SetLimit(jobs)

	for _, gn := range genomes {
		gn := gn

		g.Go(func() error {
			if err := annotate(ctx, r, gn, opts); err != nil {
				logging.L.Warn("annotation failed", zap.String("genome", gn.Name), zap.Error(err))

				mu.Lock()
				errs = append(errs, &GenomeError{Genome: gn.Name, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}

	g.Wait()

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Genome < errs[j].Genome })
		return errs
	}

	return ctx.Err()
}

func annotate(ctx context.Context, r runner.Runner, g *genome.Genome, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logging.L.Info("annotating genome", zap.String("genome", g.Name))

	if err := r.Run(ctx, Command(g, opts)); err != nil {
		return err
	}

	return PrefixOutputs(filepath.Join(opts.OutDir, ResultsDir, g.Name), g.Name)
}

// PrefixOutputs renames every file in dir to <name>_<file> so outputs from
// different genomes can be told apart once collected. Files that already
// carry the prefix are left alone.
func PrefixOutputs(dir, name string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	prefix := name + "_"

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), prefix) {
			continue
		}

		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dir, prefix+e.Name())); err != nil {
			return err
		}
	}

	return nil
}
