package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campy-amr/tools/cmd/campy-amr/uni"
)

var accessionRe = regexp.MustCompile(`^GC[AF]_\d{9}\.\d+$`)

// lineErrors maps a 1-based line number to the problems found on it.
type lineErrors map[int][]string

func (e lineErrors) add(line int, format string, args ...interface{}) {
	e[line] = append(e[line], fmt.Sprintf(format, args...))
}

func (e lineErrors) lines() []int {
	lines := make([]int, 0, len(e))

	for l := range e {
		lines = append(lines, l)
	}

	sort.Ints(lines)

	return lines
}

func validateAccessions(r io.Reader) (lineErrors, error) {
	errs := make(lineErrors)
	seen := make(map[string]int)

	s := bufio.NewScanner(uni.New(r))
	line := 0

	for s.Scan() {
		line++

		acc := strings.TrimSpace(s.Text())

		if acc == "" || strings.HasPrefix(acc, "#") {
			continue
		}

		if !accessionRe.MatchString(acc) {
			errs.add(line, "accession = '%s'", acc)
			continue
		}

		if prev, ok := seen[acc]; ok {
			errs.add(line, "duplicate of line %d", prev)
			continue
		}

		seen[acc] = line
	}

	return errs, s.Err()
}

func validateSampleSheet(r io.Reader) (lineErrors, error) {
	errs := make(lineErrors)
	seen := make(map[string]int)

	cr := csv.NewReader(uni.New(r))
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	for {
		rec, err := cr.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)

		if len(rec) != 2 {
			errs.add(line, "expected 2 columns, got %d", len(rec))
			continue
		}

		name := strings.TrimSpace(rec[0])
		path := strings.TrimSpace(rec[1])

		if name == "" {
			errs.add(line, "empty sample name")
		} else if prev, ok := seen[name]; ok {
			errs.add(line, "sample '%s' duplicates line %d", name, prev)
		} else {
			seen[name] = line
		}

		if !filepath.IsAbs(path) {
			errs.add(line, "path '%s' is not absolute", path)
		} else if stat, err := os.Stat(path); err != nil {
			errs.add(line, "path '%s' does not exist", path)
		} else if !stat.Mode().IsRegular() {
			errs.add(line, "path '%s' is not a file", path)
		}
	}

	return errs, nil
}

func validateFile(cmd *cobra.Command, path string, fn func(io.Reader) (lineErrors, error)) bool {
	f, err := os.Open(path)
	if err != nil {
		cmd.Printf("Error opening file '%s': %s\n", path, err)
		return false
	}
	defer f.Close()

	errs, err := fn(f)
	if err != nil {
		cmd.Printf("Error reading file '%s': %s\n", path, err)
		return false
	}

	if len(errs) == 0 {
		cmd.Printf("* %s: everything looks good!\n", path)
		return true
	}

	red := color.New(color.FgRed).SprintFunc()

	cmd.Printf("* Errors found in '%s':\n", path)

	for _, line := range errs.lines() {
		cmd.Printf("    line %d: %s\n", line, red(strings.Join(errs[line], ", ")))
	}

	return false
}

var validateCmd = &cobra.Command{
	Use: "validate",

	Short: "Validates an accession list and/or an AbritAMR sample sheet.",

	Example: `
  campy-amr validate --accessions accessions.txt
  campy-amr validate --sample-sheet results/sample_sheet.txt`,

	Run: func(cmd *cobra.Command, args []string) {
		accessions := viper.GetString("validate.accessions")
		sheet := viper.GetString("validate.sample-sheet")

		if accessions == "" && sheet == "" {
			cmd.Println("At least one of --accessions or --sample-sheet is required.")
			os.Exit(1)
		}

		ok := true

		if accessions != "" {
			ok = validateFile(cmd, accessions, validateAccessions) && ok
		}

		if sheet != "" {
			ok = validateFile(cmd, sheet, validateSampleSheet) && ok
		}

		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	flags := validateCmd.Flags()

	flags.String("accessions", "", "File with one assembly accession per line.")
	flags.String("sample-sheet", "", "Tab-delimited AbritAMR sample sheet.")

	viper.BindPFlag("validate.accessions", flags.Lookup("accessions"))
	viper.BindPFlag("validate.sample-sheet", flags.Lookup("sample-sheet"))
}
