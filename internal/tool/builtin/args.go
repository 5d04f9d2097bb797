package builtin

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/tool"
)

var (
	// ErrInvalidArgs is returned when required arguments are missing or
	// have the wrong shape.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrPositionalSort is returned when Sorting is asked to key named-column
	// rows by position.
	ErrPositionalSort = errors.New("positional field_index is not supported for named-column rows")

	// ErrNotFinite is returned for NaN or infinite operands and results.
	ErrNotFinite = errors.New("not a finite number")
)

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgs, fmt.Sprintf(format, a...))
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// toFloat converts any Go numeric kind.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// number accepts finite numbers and numeric strings.
func number(v any) (float64, error) {
	if f, ok := toFloat(v); ok {
		return finite(f)
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		return finite(f)
	}
	return 0, fmt.Errorf("not a number: %v (%T)", v, v)
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotFinite, f)
	}
	return f, nil
}

// measure is number plus "HH:MM" clock strings, which become minutes since
// midnight.
func measure(v any) (float64, error) {
	if s, ok := v.(string); ok && strings.Contains(s, ":") {
		hh, mm, err := splitClock(s)
		if err != nil {
			return 0, err
		}
		h, err1 := strconv.ParseFloat(hh, 64)
		m, err2 := strconv.ParseFloat(mm, 64)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("not a clock time: %q", s)
		}
		return finite(h*60 + m)
	}
	return number(v)
}

func splitClock(s string) (string, string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("not a clock time: %q", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func boolParam(p tool.Params, key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, invalid("%s: not a boolean: %q", key, b)
		}
		return parsed, nil
	default:
		return false, invalid("%s: want boolean, got %T", key, v)
	}
}

func stringParam(p tool.Params, key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", invalid("missing %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", invalid("%s: want non-empty string, got %v", key, v)
	}
	return s, nil
}

func stringsOf(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: want string, got %T", i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want list of strings, got %T", v)
	}
}

// rowsOf accepts the row shapes a payload or decoded literal can take.
func rowsOf(v any) ([]op.Row, error) {
	switch t := v.(type) {
	case []op.Row:
		return t, nil
	case []map[string]any:
		out := make([]op.Row, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, nil
	case []any:
		out := make([]op.Row, len(t))
		for i, e := range t {
			switch r := e.(type) {
			case op.Row:
				out[i] = r
			case map[string]any:
				out[i] = r
			default:
				return nil, fmt.Errorf("element %d: want row, got %T", i, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want list of rows, got %T", v)
	}
}

// valuesOf returns the elements of a list payload.
func valuesOf(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out, nil
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []op.Row:
		out := make([]any, len(t))
		for i, r := range t {
			out[i] = r
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want list, got %T", v)
	}
}

// series reads "data" as a list of values, or, when "field" is set, as rows
// from which that column is extracted.
func series(p tool.Params) ([]any, error) {
	data, ok := p["data"]
	if !ok {
		return nil, invalid("missing data")
	}
	if !p.Has("field") {
		vals, err := valuesOf(data)
		if err != nil {
			return nil, invalid("data: %v", err)
		}
		return vals, nil
	}
	field, err := stringParam(p, "field")
	if err != nil {
		return nil, err
	}
	rows, err := rowsOf(data)
	if err != nil {
		return nil, invalid("data: %v", err)
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		v, ok := r[field]
		if !ok {
			return nil, fmt.Errorf("row %d: missing column %q", i, field)
		}
		out[i] = v
	}
	return out, nil
}
