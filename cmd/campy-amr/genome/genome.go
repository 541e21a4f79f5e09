// Package genome locates assembly FASTA files on disk and prepares them for
// annotation and AMR prediction.
package genome

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campy-amr/tools/cmd/campy-amr/logging"
)

// FastaExt is the extension of nucleotide FASTA assemblies.
const FastaExt = ".fna"

// Genome is an assembly file ready to be processed.
type Genome struct {
	// Name is the file name without its extension and identifies the
	// isolate in downstream results.
	Name string
	Path string
}

// Genomes is sortable by name.
type Genomes []*Genome

func (g Genomes) Len() int           { return len(g) }
func (g Genomes) Less(i, j int) bool { return g[i].Name < g[j].Name }
func (g Genomes) Swap(i, j int)      { g[i], g[j] = g[j], g[i] }

// BaseName strips the final extension from a file name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// List returns the regular .fna files in dir with absolute paths.
func List(dir string) (Genomes, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	var gs Genomes

	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != FastaExt {
			continue
		}

		gs = append(gs, &Genome{
			Name: BaseName(e.Name()),
			Path: filepath.Join(abs, e.Name()),
		})
	}

	sort.Sort(gs)

	return gs, nil
}

// Decompress decompresses every .gz file in dir next to itself and removes
// the compressed file. At most jobs files are decompressed at once. The
// paths of the decompressed files are returned sorted.
func Decompress(ctx context.Context, dir string, jobs int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	if jobs < 1 {
		jobs = 1
	}

	var (
		mu  sync.Mutex
		out []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ".gz" {
			continue
		}

		src := filepath.Join(dir, e.Name())
		dst := filepath.Join(dir, BaseName(e.Name()))

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			n, err := decompressFile(src, dst)
			if err != nil {
				return fmt.Errorf("decompressing %s: %w", src, err)
			}

			logging.L.Info("decompressed genome",
				zap.String("file", filepath.Base(src)),
				zap.String("size", humanize.Bytes(uint64(n))))

			mu.Lock()
			out = append(out, dst)
			mu.Unlock()

			return nil
		})
	}

	err = g.Wait()

	sort.Strings(out)

	return out, err
}

// decompressFile writes the contents of the gzip file src to dst through a
// temporary file and removes src on success.
func decompressFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(tmp, zr)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}

	return n, os.Remove(src)
}
