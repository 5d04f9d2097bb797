package pipeline

import (
	"slices"
	"strings"

	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/schema"
	"github.com/marcelocantos/sqlops/internal/tool"
	"github.com/marcelocantos/sqlops/internal/tool/builtin"
)

// DefaultAliases are tool-name variants upstream parsers commonly emit.
var DefaultAliases = map[string]string{
	"work_time_calculate": "WorkTimeCalculate",
	"sort":                "Sorting",
	"average":             "Averaging",
	"mean":                "Averaging",
}

// Aliases builds a case-insensitive tool-name table: every registered name
// maps to itself, then DefaultAliases, then extra (for example
// "calc" -> "Division") are layered on top.
func Aliases(reg *tool.Registry, extra map[string]string) map[string]string {
	out := make(map[string]string)
	for _, t := range reg.All() {
		out[strings.ToLower(t.Name())] = t.Name()
	}
	for k, v := range DefaultAliases {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Prepare fixes up operations the way an upstream parser tends to get them
// wrong. It returns new operations and leaves ops untouched.
//
// Tool names are looked up case-insensitively in aliases (keys lowercased).
// For every derived column in cat, a producing operation whose
// number_columns is not a pair is pointed at the declared sources, and the
// first Query with an explicit field list gains any missing source column.
func Prepare(ops []op.Operation, aliases map[string]string, cat *schema.Catalog) []op.Operation {
	out := make([]op.Operation, len(ops))
	for i, o := range ops {
		o = o.Clone()
		if name, ok := aliases[strings.ToLower(o.Tool)]; ok {
			o.Tool = name
		}
		out[i] = o
	}
	if cat == nil {
		return out
	}

	var needed []string
	for i, o := range out {
		d, ok := derivedOutput(o, cat)
		if !ok {
			continue
		}
		if v, present := o.Args["number_columns"]; present {
			if cols, ok := literalStrings(v); !ok || len(cols) != 2 {
				out[i].Args["number_columns"] = op.Lit(slices.Clone(d.Columns))
			}
		}
		for _, c := range d.Columns {
			if !slices.Contains(needed, c) {
				needed = append(needed, c)
			}
		}
	}
	if len(needed) > 0 {
		addQueryFields(out, needed, schema.NewNormalizer(cat))
	}
	return out
}

// derivedOutput reports the derived column o produces, if any.
func derivedOutput(o op.Operation, cat *schema.Catalog) (schema.Derived, bool) {
	v, ok := o.Args["output_column"].Literal()
	if !ok {
		return schema.Derived{}, false
	}
	name, ok := v.(string)
	if !ok {
		return schema.Derived{}, false
	}
	d, ok := cat.Derived(name)
	if !ok || d.Tool != o.Tool {
		return schema.Derived{}, false
	}
	return d, true
}

func addQueryFields(ops []op.Operation, needed []string, n *schema.Normalizer) {
	for i, o := range ops {
		if o.Tool != builtin.QueryName {
			continue
		}
		raw, ok := o.Args["conditions"].Literal()
		if !ok {
			return
		}
		spec, err := op.QuerySpecOf(raw)
		if err != nil || len(spec.Fields) == 0 {
			return
		}
		have := make(map[string]bool, len(spec.Fields))
		for _, f := range spec.Fields {
			have[n.Normalize(f)] = true
		}
		spec = spec.Clone()
		for _, c := range needed {
			if !have[c] {
				spec.Fields = append(spec.Fields, c)
			}
		}
		ops[i].Args["conditions"] = op.Lit(spec)
		return
	}
}

func literalStrings(v op.Value) ([]string, bool) {
	lit, ok := v.Literal()
	if !ok {
		return nil, false
	}
	switch t := lit.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
