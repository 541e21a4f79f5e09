package quinolone

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

// Determinant is a resistance gene or point mutation and the number of
// isolates carrying it.
type Determinant struct {
	Name     string
	Isolates int
}

// Isolate lists the quinolone determinants found in one isolate.
type Isolate struct {
	Name         string
	Determinants []string
}

// Resistant returns true if any determinant was found.
func (i *Isolate) Resistant() bool {
	return len(i.Determinants) > 0
}

// Summary aggregates quinolone resistance across isolates.
type Summary struct {
	Columns      []string
	Isolates     []*Isolate
	Determinants []*Determinant
}

// Total returns the number of isolates.
func (s *Summary) Total() int {
	return len(s.Isolates)
}

// Resistant returns the number of isolates with at least one determinant.
func (s *Summary) Resistant() int {
	var n int

	for _, i := range s.Isolates {
		if i.Resistant() {
			n++
		}
	}

	return n
}

// Prevalence returns the percentage of resistant isolates.
func (s *Summary) Prevalence() float64 {
	if len(s.Isolates) == 0 {
		return 0
	}

	return 100 * float64(s.Resistant()) / float64(len(s.Isolates))
}

// Share returns the percentage of isolates carrying d.
func (s *Summary) Share(d *Determinant) float64 {
	if len(s.Isolates) == 0 {
		return 0
	}

	return 100 * float64(d.Isolates) / float64(len(s.Isolates))
}

// splitCell splits a cell into determinant names. AbritAMR separates multiple
// hits with commas; semicolons are accepted too.
func splitCell(v string) []string {
	var out []string

	for _, tok := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
		tok = strings.TrimSpace(tok)

		if tok == "" || tok == "-" {
			continue
		}

		out = append(out, tok)
	}

	return out
}

// Summarize counts determinants per isolate over every quinolone column. An
// isolate is resistant when any of its quinolone cells is non-empty.
func Summarize(t *table.Table) (*Summary, error) {
	iso := t.Index(IsolateColumn)
	if iso < 0 {
		return nil, ErrNoIsolateColumn
	}

	cols := Columns(t)
	if len(cols) == 0 {
		return nil, ErrNoQuinoloneColumns
	}

	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = t.Index(c)
	}

	s := &Summary{Columns: cols}
	counts := make(map[string]int)

	for _, row := range t.Rows {
		i := &Isolate{Name: row[iso]}
		seen := make(map[string]struct{})

		for _, k := range idx {
			for _, d := range splitCell(row[k]) {
				if _, ok := seen[d]; ok {
					continue
				}

				seen[d] = struct{}{}
				i.Determinants = append(i.Determinants, d)
				counts[d]++
			}
		}

		s.Isolates = append(s.Isolates, i)
	}

	for name, n := range counts {
		s.Determinants = append(s.Determinants, &Determinant{Name: name, Isolates: n})
	}

	sort.Slice(s.Determinants, func(i, j int) bool {
		a, b := s.Determinants[i], s.Determinants[j]
		if a.Isolates != b.Isolates {
			return a.Isolates > b.Isolates
		}
		return a.Name < b.Name
	})

	return s, nil
}

var markdownTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"join": strings.Join,
}).Parse(`# Quinolone resistance summary

- Isolates: {{.Total}}
- Resistant: {{.Resistant}} ({{pct .Prevalence}})
- Columns: {{join .Columns ", "}}

## Determinants
{{if .Determinants}}
| Determinant | Isolates | Share |
|---|---|---|
{{range .Determinants}}| {{.Name}} | {{.Isolates}} | {{pct ($.Share .)}} |
{{end}}{{else}}
No quinolone resistance determinants found.
{{end}}
## Resistant isolates
{{range .Isolates}}{{if .Resistant}}
- **{{.Name}}**: {{join .Determinants ", "}}{{end}}{{end}}
`))

// Markdown renders the summary as a Markdown report.
func (s *Summary) Markdown(w io.Writer) error {
	return markdownTemplate.Execute(w, s)
}
