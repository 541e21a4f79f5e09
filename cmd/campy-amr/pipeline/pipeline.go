package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campy-amr/tools/cmd/campy-amr/abritamr"
	"github.com/campy-amr/tools/cmd/campy-amr/genome"
	"github.com/campy-amr/tools/cmd/campy-amr/logging"
	"github.com/campy-amr/tools/cmd/campy-amr/prokka"
	"github.com/campy-amr/tools/cmd/campy-amr/runner"
)

// ManifestName is the file in the output directory describing a run.
const ManifestName = "run.json"

var ErrNoGenomes = errors.New("no genomes found")

// Options configure a pipeline run.
type Options struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	WorkDir   string `json:"work_dir,omitempty"`
	Threads   int    `json:"threads"`
	Jobs      int    `json:"jobs"`
	Kingdom   string `json:"kingdom"`
	Species   string `json:"species"`
	Annotate  bool   `json:"annotate"`
	AddGenes  bool   `json:"add_genes"`
}

// Validate checks option values before any work is done.
func (o *Options) Validate() error {
	if o.InputDir == "" {
		return errors.New("input directory is required")
	}

	if o.OutputDir == "" {
		return errors.New("output directory is required")
	}

	if o.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", o.Threads)
	}

	if o.Annotate {
		if err := prokka.ValidKingdom(o.Kingdom); err != nil {
			return err
		}
	}

	return abritamr.ValidSpecies(o.Species)
}

// Tools returns the external programs the run needs.
func (o *Options) Tools() []string {
	if o.Annotate {
		return []string{prokka.Program, abritamr.Program}
	}

	return []string{abritamr.Program}
}

// Step statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Step records the outcome of one stage of a run.
type Step struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Manifest describes a run and is written to the output directory.
type Manifest struct {
	ID          string    `json:"id"`
	ToolVersion string    `json:"tool_version"`
	Options     Options   `json:"options"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	Steps       []*Step   `json:"steps"`
	Genomes     []string  `json:"genomes"`
	Results     []string  `json:"results"`
}

// Failed returns true if any step failed.
func (m *Manifest) Failed() bool {
	for _, s := range m.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}

	return false
}

// WriteFile writes the manifest as indented JSON.
func (m *Manifest) WriteFile(path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Pipeline decompresses genomes, optionally annotates them with Prokka and
// predicts AMR determinants with AbritAMR.
type Pipeline struct {
	Runner  runner.Runner
	Version string
	Options Options

	// now is replaced in tests.
	now func() time.Time
}

func New(r runner.Runner, version string, opts Options) *Pipeline {
	return &Pipeline{
		Runner:  r,
		Version: version,
		Options: opts,
		now:     time.Now,
	}
}

// Run executes every step in order and writes the manifest. A failing
// annotation or AMR prediction step is recorded and later steps still run;
// failures before the sample sheet exists stop the run. The returned error
// is non-nil when any step failed.
func (p *Pipeline) Run(ctx context.Context) (*Manifest, error) {
	opts := p.Options

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o775); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	m := &Manifest{
		ID:          uuid.New().String(),
		ToolVersion: p.Version,
		Options:     opts,
		Started:     p.now(),
	}

	log := logging.L.With(zap.String("run", m.ID))

	log.Info("pipeline started",
		zap.String("input", opts.InputDir),
		zap.String("output", opts.OutputDir),
		zap.Int("threads", opts.Threads),
		zap.String("kingdom", opts.Kingdom),
		zap.String("species", opts.Species))

	err := p.run(ctx, m, log)

	m.Finished = p.now()

	if werr := m.WriteFile(filepath.Join(opts.OutputDir, ManifestName)); werr != nil {
		log.Warn("could not write run manifest", zap.Error(werr))
	}

	if err == nil && m.Failed() {
		err = errors.New("one or more pipeline steps failed")
	}

	log.Info("pipeline finished", zap.Duration("elapsed", m.Finished.Sub(m.Started)), zap.Bool("failed", err != nil))

	return m, err
}

func (p *Pipeline) step(m *Manifest, log *zap.Logger, name string, fn func() error) error {
	s := &Step{Name: name, Started: p.now()}
	m.Steps = append(m.Steps, s)

	log.Info("starting step", zap.String("step", name))

	err := fn()

	s.Finished = p.now()

	if err != nil {
		s.Status = StatusFailed
		s.Error = err.Error()
		log.Warn("step failed", zap.String("step", name), zap.Error(err))
		return err
	}

	s.Status = StatusOK
	log.Info("step completed", zap.String("step", name), zap.Duration("elapsed", s.Finished.Sub(s.Started)))

	return nil
}

func (p *Pipeline) skip(m *Manifest, name string) {
	now := p.now()
	m.Steps = append(m.Steps, &Step{Name: name, Status: StatusSkipped, Started: now, Finished: now})
}

func (p *Pipeline) run(ctx context.Context, m *Manifest, log *zap.Logger) error {
	opts := p.Options

	err := p.step(m, log, "decompress", func() error {
		_, err := genome.Decompress(ctx, opts.InputDir, opts.Threads)
		return err
	})
	if err != nil {
		return err
	}

	genomes, err := genome.List(opts.InputDir)
	if err != nil {
		return err
	}

	if len(genomes) == 0 {
		return fmt.Errorf("%w in '%s'", ErrNoGenomes, opts.InputDir)
	}

	for _, g := range genomes {
		m.Genomes = append(m.Genomes, g.Name)
	}

	if opts.Annotate {
		// Failures for single genomes are recorded but do not stop the run.
		p.step(m, log, "annotate", func() error {
			return prokka.Annotate(ctx, p.Runner, genomes, prokka.Options{
				OutDir:   opts.OutputDir,
				CPUs:     opts.Threads,
				Kingdom:  opts.Kingdom,
				AddGenes: opts.AddGenes,
				Jobs:     opts.Jobs,
			})
		})
	} else {
		p.skip(m, "annotate")
	}

	sheet := filepath.Join(opts.OutputDir, abritamr.SampleSheetName)

	err = p.step(m, log, "sample-sheet", func() error {
		_, err := abritamr.WriteSampleSheet(sheet, genomes)
		return err
	})
	if err != nil {
		return err
	}

	p.step(m, log, "abritamr", func() error {
		moved, err := abritamr.Run(ctx, p.Runner, abritamr.Options{
			SampleSheet: sheet,
			OutDir:      opts.OutputDir,
			WorkDir:     opts.WorkDir,
			Jobs:        opts.Threads,
			Species:     opts.Species,
		})
		m.Results = moved
		return err
	})

	return ctx.Err()
}
