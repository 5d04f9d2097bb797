// Package source turns data-source locators into database connections.
//
// A locator is a path or URL:
//
//	workers.db, sqlite:workers.db, :memory:     sqlite (modernc.org/sqlite)
//	duckdb:warehouse.duckdb, warehouse.duckdb    duckdb
//	postgres://user@host/db, postgresql://...    postgres (pgx)
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	_ "modernc.org/sqlite"              // sqlite driver
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverDuckDB   = "duckdb"
	DriverPostgres = "pgx"
)

const memory = ":memory:"

// ErrNotFound is returned when a file-backed locator names a missing file.
var ErrNotFound = errors.New("data source not found")

// Target is a resolved locator.
type Target struct {
	Driver string
	DSN    string
	// File is the on-disk path for file-backed engines, empty otherwise.
	File string
}

// Resolve maps a locator onto a driver and DSN.
func Resolve(locator string) (Target, error) {
	loc := strings.TrimSpace(locator)
	switch {
	case loc == "":
		return Target{}, fmt.Errorf("empty data source locator")
	case strings.HasPrefix(loc, "postgres://"), strings.HasPrefix(loc, "postgresql://"):
		return Target{Driver: DriverPostgres, DSN: loc}, nil
	case strings.HasPrefix(loc, "duckdb:"):
		return fileTarget(DriverDuckDB, strings.TrimPrefix(loc, "duckdb:")), nil
	case strings.HasSuffix(strings.ToLower(loc), ".duckdb"):
		return fileTarget(DriverDuckDB, loc), nil
	case strings.HasPrefix(loc, "sqlite:"):
		return fileTarget(DriverSQLite, strings.TrimPrefix(loc, "sqlite:")), nil
	default:
		return fileTarget(DriverSQLite, loc), nil
	}
}

func fileTarget(driver, path string) Target {
	if path == "" || path == memory {
		if driver == DriverDuckDB {
			return Target{Driver: driver}
		}
		return Target{Driver: driver, DSN: memory}
	}
	return Target{Driver: driver, DSN: path, File: path}
}

// Opener opens a fresh connection for one tool invocation. The caller owns
// the returned handle and must close it.
type Opener interface {
	Open(ctx context.Context, locator string) (*sql.DB, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, locator string) (*sql.DB, error)

func (f OpenerFunc) Open(ctx context.Context, locator string) (*sql.DB, error) {
	return f(ctx, locator)
}

// SQLOpener opens connections through database/sql.
type SQLOpener struct {
	Logger *slog.Logger
}

var _ Opener = (*SQLOpener)(nil)

// Open resolves locator, refuses missing database files (sqlite and duckdb
// would otherwise create them), opens and pings the connection.
func (o *SQLOpener) Open(ctx context.Context, locator string) (*sql.DB, error) {
	t, err := Resolve(locator)
	if err != nil {
		return nil, err
	}
	if t.File != "" {
		if _, err := os.Stat(t.File); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, t.File)
			}
			return nil, fmt.Errorf("stat %s: %w", t.File, err)
		}
	}

	o.logger().Debug("opening data source", "driver", t.Driver, "locator", locator)
	db, err := sql.Open(t.Driver, t.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", t.Driver, err)
	}
	// One SELECT per invocation; no pooling across invocations.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", t.Driver, err)
	}
	return db, nil
}

func (o *SQLOpener) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
