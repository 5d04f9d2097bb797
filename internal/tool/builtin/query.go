package builtin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/source"
	"github.com/marcelocantos/sqlops/internal/tool"
)

// QueryName is the name of the relational query primitive. The executor
// patches its conditions before dispatch.
const QueryName = "Query"

// Query runs one SELECT built from a QuerySpec. Open and execution failures
// are logged and produce an empty row set; only bad arguments and context
// expiry are returned as errors.
type Query struct {
	Source    source.Opener
	DefaultDB string
	Logger    *slog.Logger
}

var _ tool.Tool = (*Query)(nil)

func (q *Query) Name() string            { return QueryName }
func (q *Query) Description() string     { return "select rows from a table: db_path, conditions{table, fields, where}" }
func (q *Query) Category() tool.Category { return tool.CategoryRelational }

func (q *Query) Invoke(ctx context.Context, p tool.Params) (any, error) {
	locator := q.DefaultDB
	if v, ok := p["db_path"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, invalid("db_path: want string, got %T", v)
		}
		locator = s
	}
	if locator == "" {
		return nil, invalid("missing db_path")
	}
	spec, err := op.QuerySpecOf(p["conditions"])
	if err != nil {
		return nil, invalid("%v", err)
	}

	rows, err := q.run(ctx, locator, spec)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("query: %w", ctxErr)
		}
		q.logger().Warn("query failed, returning no rows", "db_path", locator, "sql", spec.SQL(), "error", err)
		return []op.Row{}, nil
	}
	return rows, nil
}

func (q *Query) run(ctx context.Context, locator string, spec op.QuerySpec) ([]op.Row, error) {
	opener := q.Source
	if opener == nil {
		opener = &source.SQLOpener{Logger: q.Logger}
	}
	db, err := opener.Open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	stmt := spec.SQL()
	q.logger().Debug("executing query", "sql", stmt)
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []op.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(op.Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func (q *Query) logger() *slog.Logger {
	if q.Logger == nil {
		return discard()
	}
	return q.Logger
}
