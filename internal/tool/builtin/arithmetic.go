package builtin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/tool"
)

// Arithmetic is a binary operation with two modes:
//
//	scalar:   number1, number2                    -> float64
//	row-wise: data, number_columns[2], output_column -> rows with the result column
//
// Row-wise operands that contain a colon are read as "HH:MM" and become
// minutes since midnight. Rows are copied before the result is written.
type Arithmetic struct {
	name string
	verb string
	fn   func(a, b float64) float64
	// guardZero makes a zero right operand yield 0 instead of calling fn.
	guardZero bool
	Logger    *slog.Logger
}

var _ tool.Tool = (*Arithmetic)(nil)

func NewAddition(l *slog.Logger) *Arithmetic {
	return &Arithmetic{name: "Addition", verb: "add", fn: func(a, b float64) float64 { return a + b }, Logger: l}
}

func NewSubtraction(l *slog.Logger) *Arithmetic {
	return &Arithmetic{name: "Subtraction", verb: "subtract", fn: func(a, b float64) float64 { return a - b }, Logger: l}
}

func NewMultiplication(l *slog.Logger) *Arithmetic {
	return &Arithmetic{name: "Multiplication", verb: "multiply", fn: func(a, b float64) float64 { return a * b }, Logger: l}
}

// NewDivision returns 0 for a zero divisor, per value or per row.
func NewDivision(l *slog.Logger) *Arithmetic {
	return &Arithmetic{name: "Division", verb: "divide", fn: func(a, b float64) float64 { return a / b }, guardZero: true, Logger: l}
}

func (a *Arithmetic) Name() string            { return a.name }
func (a *Arithmetic) Category() tool.Category { return tool.CategoryArithmetic }

func (a *Arithmetic) Description() string {
	return a.verb + " two numbers (number1, number2) or two columns (data, number_columns, output_column)"
}

func (a *Arithmetic) Invoke(_ context.Context, p tool.Params) (any, error) {
	if p.Has("number1") && p.Has("number2") {
		x, err := number(p["number1"])
		if err != nil {
			return nil, invalid("number1: %v", err)
		}
		y, err := number(p["number2"])
		if err != nil {
			return nil, invalid("number2: %v", err)
		}
		r, err := finite(a.apply(x, y))
		if err != nil {
			return nil, fmt.Errorf("%s %v and %v: %w", a.verb, x, y, err)
		}
		return r, nil
	}
	if p.Has("data") && p.Has("number_columns") && p.Has("output_column") {
		return a.rowWise(p)
	}
	return nil, invalid("%s needs number1 and number2, or data, number_columns and output_column", a.name)
}

func (a *Arithmetic) apply(x, y float64) float64 {
	if a.guardZero && y == 0 {
		a.logger().Warn("zero divisor, using 0", "tool", a.name, "dividend", x)
		return 0
	}
	return a.fn(x, y)
}

func (a *Arithmetic) rowWise(p tool.Params) (any, error) {
	rows, err := rowsOf(p["data"])
	if err != nil {
		return nil, invalid("data: %v", err)
	}
	cols, err := stringsOf(p["number_columns"])
	if err != nil {
		return nil, invalid("number_columns: %v", err)
	}
	if len(cols) != 2 {
		return nil, invalid("number_columns: want 2 columns, got %d", len(cols))
	}
	out, err := stringParam(p, "output_column")
	if err != nil {
		return nil, err
	}
	return ApplyRows(rows, cols[0], cols[1], out, a.apply)
}

// ApplyRows writes fn(row[left], row[right]) into row[out] on copies of rows.
// A non-finite result fails the whole call.
func ApplyRows(rows []op.Row, left, right, out string, fn func(a, b float64) float64) ([]op.Row, error) {
	result := op.CloneRows(rows)
	for i, row := range result {
		x, err := operand(row, left)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		y, err := operand(row, right)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		r, err := finite(fn(x, y))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		row[out] = r
	}
	return result, nil
}

func operand(row op.Row, col string) (float64, error) {
	v, ok := row[col]
	if !ok {
		return 0, fmt.Errorf("missing column %q", col)
	}
	f, err := measure(v)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return f, nil
}

func (a *Arithmetic) logger() *slog.Logger {
	if a.Logger == nil {
		return discard()
	}
	return a.Logger
}
