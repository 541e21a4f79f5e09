package main

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

func TestTableName(t *testing.T) {
	tests := map[string]string{
		"abritamr_results/abritamr.txt": "abritamr",
		"quinolone-master.txt":          "quinolone_master",
		"/tmp/2021 batch.tsv":           "t_2021_batch",
	}

	for in, exp := range tests {
		assert.Equal(t, exp, tableName(in), in)
	}
}

func TestLoadAndQuery(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	a := &table.Table{
		Header: []string{"Isolate", "Quinolone"},
		Rows: [][]string{
			{"S1", "gyrA_T86I"},
			{"S2", ""},
		},
	}

	b := &table.Table{
		Header: []string{"Isolate", "Quinolone (partial)"},
		Rows: [][]string{
			{"S3", "gyrA_D90N"},
		},
	}

	require.NoError(t, loadTable(db, "quinolone", a))
	require.NoError(t, loadTable(db, "quinolone", b))

	var n int
	require.NoError(t, db.QueryRow(`select count(*) from quinolone where Quinolone is null`).Scan(&n))
	assert.Equal(t, 2, n)

	var buf bytes.Buffer
	require.NoError(t, queryDatabase(db, `select Isolate from quinolone where "Quinolone (partial)" = 'gyrA_D90N'`, &buf))

	out := buf.String()
	assert.Contains(t, out, "Isolate")
	assert.Contains(t, out, "S3")
	assert.NotContains(t, out, "S1")
}

func TestQueryError(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	assert.Error(t, queryDatabase(db, "select * from missing", &buf))
}
