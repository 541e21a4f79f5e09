package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

var queryCmd = &cobra.Command{
	Use: "query ( - | <sql> ) <path>...",

	Short: "Executes a SQL query against one or more result tables.",

	Long: `Each tab-delimited file is loaded into an in-memory SQLite table named after
the file (without extension, non-alphanumeric characters replaced with
underscores). Column names are kept as-is, so quote them when they contain
spaces. Empty cells are NULL.`,

	Example: `
Inline:

  $ campy-amr query 'select Isolate, Quinolone from abritamr where Quinolone is not null' abritamr_results/abritamr.txt

Use - to read from stdin:

  $ campy-amr query - batch1/quinolone.txt batch2/quinolone.txt
  select Quinolone, count(*) from batch1 group by Quinolone
  ^D

Read from a file:

  $ campy-amr query - quinolone_master.txt < query.sql
`,

	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			cmd.Usage()
			os.Exit(1)
		}

		stmt := args[0]

		// Read the SQL from stdin
		if stmt == "-" {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				cmd.Println(err)
				os.Exit(1)
			}

			stmt = string(b)
		}

		db, err := sql.Open("sqlite3", ":memory:")
		if err != nil {
			cmd.Println(err)
			os.Exit(1)
		}
		defer db.Close()

		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)

		for _, path := range args[1:] {
			t, err := table.ReadFile(path)
			if err != nil {
				cmd.Printf("Error reading '%s': %s\n", path, err)
				os.Exit(1)
			}

			if err := loadTable(db, tableName(path), t); err != nil {
				cmd.Printf("Error loading '%s': %s\n", path, err)
				os.Exit(1)
			}
		}

		if err := queryDatabase(db, stmt, cmd.OutOrStdout()); err != nil {
			cmd.Printf("query error: %s\n", err)
			os.Exit(1)
		}
	},
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// tableName derives a SQL table name from a file path.
func tableName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = nonIdent.ReplaceAllString(name, "_")

	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}

	return name
}

func quoteIdent(s string) string {
	return `"` + strings.Replace(s, `"`, `""`, -1) + `"`
}

// loadTable creates the table if needed and inserts every row. Files with the
// same name are appended to the same table, adding columns they introduce.
func loadTable(db *sql.DB, name string, t *table.Table) error {
	existing, err := tableColumns(db, name)
	if err != nil {
		return err
	}

	if existing == nil {
		cols := make([]string, len(t.Header))

		for i, c := range t.Header {
			cols[i] = fmt.Sprintf("%s TEXT", quoteIdent(c))
		}

		stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ",\n"))

		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	} else {
		for _, c := range t.Header {
			if _, ok := existing[c]; ok {
				continue
			}

			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quoteIdent(name), quoteIdent(c))

			if _, err := db.Exec(stmt); err != nil {
				return err
			}
		}
	}

	cols := make([]string, len(t.Header))
	params := make([]string, len(t.Header))

	for i, c := range t.Header {
		cols[i] = quoteIdent(c)
		params[i] = "?"
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), strings.Join(cols, ","), strings.Join(params, ","))

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	for _, r := range t.Rows {
		row := make([]interface{}, len(r))

		for i, c := range r {
			// Use null values for empty strings
			if c == "" {
				row[i] = nil
			} else {
				row[i] = c
			}
		}

		if _, err := tx.Exec(insert, row...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// tableColumns returns the columns of an existing table or nil if it does not
// exist.
func tableColumns(db *sql.DB, name string) (map[string]struct{}, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols map[string]struct{}

	for rows.Next() {
		var (
			cid     int
			col     string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)

		if err := rows.Scan(&cid, &col, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}

		if cols == nil {
			cols = make(map[string]struct{})
		}

		cols[col] = struct{}{}
	}

	return cols, rows.Err()
}

func queryDatabase(db *sql.DB, stmt string, w io.Writer) error {
	rows, err := db.Query(stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(cols)
	tw.SetAutoFormatHeaders(false)

	row := make([]interface{}, len(cols))

	for i := range row {
		row[i] = new(sql.NullString)
	}

	for rows.Next() {
		if err = rows.Scan(row...); err != nil {
			return err
		}

		out := make([]string, len(row))

		for i, v := range row {
			if x := v.(*sql.NullString); x.Valid {
				out[i] = x.String
			}
		}

		tw.Append(out)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	tw.Render()

	return nil
}
