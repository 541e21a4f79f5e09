package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campy-amr/tools/cmd/campy-amr/entrez"
	"github.com/campy-amr/tools/cmd/campy-amr/logging"
)

// Fetcher resolves accessions to genome files and downloads them.
type Fetcher interface {
	Lookup(ctx context.Context, accession string) (*entrez.AssemblySummary, error)
	Download(ctx context.Context, url, dest string) (int64, error)
}

// ReadAccessions reads one accession per line. Blank lines and lines starting
// with '#' are ignored and repeated accessions are dropped.
func ReadAccessions(r io.Reader) ([]string, error) {
	var accs []string
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if _, ok := seen[line]; ok {
			continue
		}

		seen[line] = struct{}{}
		accs = append(accs, line)
	}

	return accs, sc.Err()
}

// Result is the outcome for a single accession.
type Result struct {
	Accession string
	Path      string
	URL       string
	Bytes     int64
	Skipped   bool
	Err       error
}

// Options control a batch of downloads.
type Options struct {
	OutDir string
	Jobs   int
	Force  bool
}

// Genomes downloads the genomic FASTA of every accession into the output
// directory as <accession>.fna.gz. A failure for one accession does not stop
// the others; results are returned in input order.
func Genomes(ctx context.Context, f Fetcher, accessions []string, opts Options) ([]*Result, error) {
	if err := os.MkdirAll(opts.OutDir, 0o775); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	results := make([]*Result, len(accessions))

	var g errgroup.Group
	g.SetLimit(jobs)

	for i, acc := range accessions {
		i, acc := i, acc

		g.Go(func() error {
			results[i] = genome(ctx, f, acc, opts)
			return nil
		})
	}

	g.Wait()

	return results, ctx.Err()
}

func genome(ctx context.Context, f Fetcher, acc string, opts Options) *Result {
	res := &Result{
		Accession: acc,
		Path:      filepath.Join(opts.OutDir, fmt.Sprintf("%s.fna.gz", acc)),
	}

	log := logging.L.With(zap.String("accession", acc))

	if !opts.Force {
		if _, err := os.Stat(res.Path); err == nil {
			log.Debug("genome already downloaded", zap.String("path", res.Path))
			res.Skipped = true
			return res
		}
	}

	summary, err := f.Lookup(ctx, acc)
	if err != nil {
		log.Warn("lookup failed", zap.Error(err))
		res.Err = err
		return res
	}

	if res.URL, err = entrez.GenomeURL(summary); err != nil {
		log.Warn("no genome sequence available", zap.Error(err))
		res.Err = err
		return res
	}

	log.Info("downloading genome", zap.String("url", res.URL))

	if res.Bytes, err = f.Download(ctx, res.URL, res.Path); err != nil {
		log.Warn("download failed", zap.Error(err))
		res.Err = err
		return res
	}

	log.Info("downloaded genome", zap.String("path", res.Path), zap.Int64("bytes", res.Bytes))

	return res
}
