// Package table reads and writes the tab-delimited result tables produced by
// AMR prediction tools and by the extraction and merge commands.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/campy-amr/tools/cmd/campy-amr/uni"
)

var ErrEmpty = errors.New("table has no header")

// Table is a header and the rows beneath it. Every row has exactly as many
// cells as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// New initializes an empty table with the passed header.
func New(header ...string) *Table {
	return &Table{
		Header: header,
	}
}

// Index returns the position of the column or -1 if the table does not
// contain it.
func (t *Table) Index(name string) int {
	for i, col := range t.Header {
		if col == name {
			return i
		}
	}

	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row, padding it to the width of the header.
func (t *Table) Append(row []string) error {
	if len(row) > len(t.Header) {
		return fmt.Errorf("row has %d cells, but header has %d", len(row), len(t.Header))
	}

	if len(row) < len(t.Header) {
		padded := make([]string, len(t.Header))
		copy(padded, row)
		row = padded
	}

	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns the values of a column.
func (t *Table) Column(name string) ([]string, bool) {
	i := t.Index(name)
	if i < 0 {
		return nil, false
	}

	vals := make([]string, len(t.Rows))
	for j, row := range t.Rows {
		vals[j] = row[i]
	}

	return vals, true
}

// Select returns a new table containing only the named columns in the order
// given.
func (t *Table) Select(cols []string) (*Table, error) {
	idx := make([]int, len(cols))

	for i, c := range cols {
		if idx[i] = t.Index(c); idx[i] < 0 {
			return nil, fmt.Errorf("no column named '%s'", c)
		}
	}

	out := New(cols...)
	out.Rows = make([][]string, len(t.Rows))

	for j, row := range t.Rows {
		r := make([]string, len(idx))
		for i, k := range idx {
			r[i] = row[k]
		}
		out.Rows[j] = r
	}

	return out, nil
}

// Concat stacks tables on top of each other. The header is the union of all
// headers in the order columns are first seen and cells for columns a source
// table does not have are left empty. A name repeated within one table keeps
// a separate column per occurrence.
func Concat(tables ...*Table) *Table {
	out := New()
	pos := make(map[string][]int)

	// slots maps each column of a source table to its output position.
	slots := make([][]int, len(tables))

	for k, t := range tables {
		seen := make(map[string]int)
		slots[k] = make([]int, len(t.Header))

		for i, col := range t.Header {
			n := seen[col]
			seen[col]++

			if n == len(pos[col]) {
				pos[col] = append(pos[col], len(out.Header))
				out.Header = append(out.Header, col)
			}

			slots[k][i] = pos[col][n]
		}
	}

	for k, t := range tables {
		for _, row := range t.Rows {
			r := make([]string, len(out.Header))
			for i, v := range row {
				r[slots[k][i]] = v
			}
			out.Rows = append(out.Rows, r)
		}
	}

	return out
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(uni.New(r))

	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	return cr
}

// Read reads a table where the first row is the header.
func Read(r io.Reader) (*Table, error) {
	cr := newCSVReader(r)

	head, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}

	for i, col := range head {
		head[i] = strings.TrimSpace(col)
	}

	// Byte order mark left by spreadsheet exports.
	head[0] = strings.TrimPrefix(head[0], "\ufeff")

	t := New(head...)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		for i, v := range row {
			row[i] = strings.TrimSpace(v)
		}

		if err := t.Append(row); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return t, nil
}

// ReadFile reads a table from a file.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// Write writes the header followed by every row.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(t.Header); err != nil {
		return err
	}

	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path, replacing an existing file.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
