// Package quinolone extracts quinolone resistance determinants from AbritAMR
// results and summarises them across isolates.
package quinolone

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

// IsolateColumn names the column that identifies each isolate.
const IsolateColumn = "Isolate"

var (
	ErrNoQuinoloneColumns = errors.New("no columns containing 'Quinolone' found")
	ErrNoIsolateColumn    = errors.New("no 'Isolate' column found")
	ErrNoInputFiles       = errors.New("no .txt files found")
)

// IsQuinoloneColumn returns true if the column name mentions quinolones,
// which includes fluoroquinolones.
func IsQuinoloneColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), "quinolone")
}

// Columns returns the quinolone columns of a table in file order.
func Columns(t *table.Table) []string {
	var cols []string

	for _, c := range t.Header {
		if IsQuinoloneColumn(c) {
			cols = append(cols, c)
		}
	}

	return cols
}

// Extract returns the Isolate column and every quinolone column. Empty cells
// mean no resistance determinant was found for the isolate.
func Extract(t *table.Table) (*table.Table, error) {
	cols := Columns(t)

	if len(cols) == 0 {
		return nil, ErrNoQuinoloneColumns
	}

	if t.Index(IsolateColumn) < 0 {
		return nil, ErrNoIsolateColumn
	}

	return t.Select(append([]string{IsolateColumn}, cols...))
}

// FileError is a file that could not be merged.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Merge concatenates every .txt table in dir, in name order, into a single
// table holding the union of their columns. Files that cannot be read are
// skipped and returned as FileErrors.
func Merge(dir string) (*table.Table, []*FileError, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var paths []string

	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".txt") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}

	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w in directory '%s'", ErrNoInputFiles, dir)
	}

	sort.Strings(paths)

	var (
		tables []*table.Table
		errs   []*FileError
	)

	for _, p := range paths {
		t, err := table.ReadFile(p)
		if err != nil {
			errs = append(errs, &FileError{Path: p, Err: err})
			continue
		}

		tables = append(tables, t)
	}

	return table.Concat(tables...), errs, nil
}
