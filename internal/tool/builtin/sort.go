package builtin

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/tool"
)

// Sort orders rows by a named column. The sort is stable in both
// directions; NULL keys sort before everything else.
type Sort struct{}

var _ tool.Tool = (*Sort)(nil)

func (s *Sort) Name() string            { return "Sorting" }
func (s *Sort) Description() string     { return "stable sort of rows: data, field_index, reverse" }
func (s *Sort) Category() tool.Category { return tool.CategoryRelational }

func (s *Sort) Invoke(_ context.Context, p tool.Params) (any, error) {
	data, ok := p["data"]
	if !ok {
		return nil, invalid("missing data")
	}
	rows, err := rowsOf(data)
	if err != nil {
		return nil, invalid("data: %v", err)
	}
	reverse, err := boolParam(p, "reverse", false)
	if err != nil {
		return nil, err
	}

	var field string
	switch f := p["field_index"].(type) {
	case string:
		field = f
	case nil:
		return nil, invalid("missing field_index")
	default:
		if _, isNum := toFloat(f); isNum {
			return nil, ErrPositionalSort
		}
		return nil, invalid("field_index: want column name, got %T", f)
	}
	return SortRows(rows, field, reverse)
}

// SortRows returns a new slice of rows ordered by field. Rows are shared
// with the input, not copied.
func SortRows(rows []op.Row, field string, reverse bool) ([]op.Row, error) {
	keys := make([]sortKey, len(rows))
	kind := kindNil
	for i, r := range rows {
		v, ok := r[field]
		if !ok {
			return nil, fmt.Errorf("row %d: missing column %q", i, field)
		}
		k, err := keyOf(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if k.kind != kindNil {
			if kind != kindNil && k.kind != kind {
				return nil, fmt.Errorf("column %q mixes %s and %s values", field, kind, k.kind)
			}
			kind = k.kind
		}
		keys[i] = k
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		c := keys[a].compare(keys[b])
		if reverse {
			return -c
		}
		return c
	})

	out := make([]op.Row, len(rows))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out, nil
}

type keyKind int

const (
	kindNil keyKind = iota
	kindNumber
	kindString
	kindTime
	kindBool
)

func (k keyKind) String() string {
	return [...]string{"null", "number", "string", "time", "bool"}[k]
}

type sortKey struct {
	kind keyKind
	num  float64
	str  string
	t    time.Time
}

func keyOf(v any) (sortKey, error) {
	if v == nil {
		return sortKey{kind: kindNil}, nil
	}
	if f, ok := toFloat(v); ok {
		return sortKey{kind: kindNumber, num: f}, nil
	}
	switch t := v.(type) {
	case string:
		return sortKey{kind: kindString, str: t}, nil
	case time.Time:
		return sortKey{kind: kindTime, t: t}, nil
	case bool:
		k := sortKey{kind: kindBool}
		if t {
			k.num = 1
		}
		return k, nil
	}
	return sortKey{}, fmt.Errorf("unsortable value %v (%T)", v, v)
}

func (a sortKey) compare(b sortKey) int {
	if a.kind == kindNil || b.kind == kindNil {
		return cmp.Compare(boolInt(a.kind != kindNil), boolInt(b.kind != kindNil))
	}
	switch a.kind {
	case kindString:
		return strings.Compare(a.str, b.str)
	case kindTime:
		return a.t.Compare(b.t)
	default:
		return cmp.Compare(a.num, b.num)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
