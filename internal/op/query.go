package op

import (
	"fmt"
	"strings"
)

// QuerySpec describes one SELECT against a single relation.
type QuerySpec struct {
	Table  string   `json:"table" yaml:"table"`
	Fields []string `json:"fields" yaml:"fields"`
	Where  string   `json:"where,omitempty" yaml:"where,omitempty"`
}

// Clone returns a copy of q with its own field slice.
func (q QuerySpec) Clone() QuerySpec {
	q.Fields = append([]string(nil), q.Fields...)
	return q
}

// SQL renders the statement. An empty field list selects every column.
func (q QuerySpec) SQL() string {
	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	s := fmt.Sprintf("SELECT %s FROM %s", strings.Join(fields, ", "), q.Table)
	if q.Where != "" {
		s += " WHERE " + q.Where
	}
	return s
}

// QuerySpecOf converts a decoded "conditions" argument into a QuerySpec.
// A nil value yields the zero spec.
func QuerySpecOf(v any) (QuerySpec, error) {
	switch t := v.(type) {
	case nil:
		return QuerySpec{}, nil
	case QuerySpec:
		return t.Clone(), nil
	case *QuerySpec:
		if t == nil {
			return QuerySpec{}, nil
		}
		return t.Clone(), nil
	case map[string]any:
		return querySpecFromMap(t)
	default:
		return QuerySpec{}, fmt.Errorf("conditions: unsupported type %T", v)
	}
}

func querySpecFromMap(m map[string]any) (QuerySpec, error) {
	var q QuerySpec
	if t, ok := m["table"]; ok && t != nil {
		s, ok := t.(string)
		if !ok {
			return q, fmt.Errorf("conditions.table: want string, got %T", t)
		}
		q.Table = s
	}
	switch f := m["fields"].(type) {
	case nil:
	case []string:
		q.Fields = append([]string(nil), f...)
	case []any:
		for i, e := range f {
			s, ok := e.(string)
			if !ok {
				return q, fmt.Errorf("conditions.fields[%d]: want string, got %T", i, e)
			}
			q.Fields = append(q.Fields, s)
		}
	case string:
		q.Fields = []string{f}
	default:
		return q, fmt.Errorf("conditions.fields: want list of strings, got %T", f)
	}
	if w, ok := m["where"]; ok && w != nil {
		s, ok := w.(string)
		if !ok {
			return q, fmt.Errorf("conditions.where: want string, got %T", w)
		}
		q.Where = s
	}
	return q, nil
}
