package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/sqlops/internal/testutil"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		locator string
		want    Target
	}{
		{"workers.db", Target{Driver: DriverSQLite, DSN: "workers.db", File: "workers.db"}},
		{"sqlite:data/w.db", Target{Driver: DriverSQLite, DSN: "data/w.db", File: "data/w.db"}},
		{":memory:", Target{Driver: DriverSQLite, DSN: ":memory:"}},
		{"duckdb:wh.duckdb", Target{Driver: DriverDuckDB, DSN: "wh.duckdb", File: "wh.duckdb"}},
		{"Warehouse.DUCKDB", Target{Driver: DriverDuckDB, DSN: "Warehouse.DUCKDB", File: "Warehouse.DUCKDB"}},
		{"duckdb::memory:", Target{Driver: DriverDuckDB}},
		{"postgres://u@localhost/db", Target{Driver: DriverPostgres, DSN: "postgres://u@localhost/db"}},
		{"postgresql://u@localhost/db", Target{Driver: DriverPostgres, DSN: "postgresql://u@localhost/db"}},
	}
	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := Resolve(tt.locator)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Resolve("  ")
	assert.Error(t, err)
}

func TestSQLOpenerMissingFile(t *testing.T) {
	o := &SQLOpener{Logger: testutil.NewTestLogger(t)}
	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLOpenerSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.db")
	seed, err := sql.Open(DriverSQLite, path)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)
	_, err = seed.Exec(`INSERT INTO t VALUES (7)`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	o := &SQLOpener{Logger: testutil.NewTestLogger(t)}
	db, err := o.Open(context.Background(), "sqlite:"+path)
	require.NoError(t, err)
	defer db.Close()

	var x int
	require.NoError(t, db.QueryRow(`SELECT x FROM t`).Scan(&x))
	assert.Equal(t, 7, x)
}
