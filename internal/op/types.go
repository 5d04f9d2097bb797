package op

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Wire forms of result references.
const (
	// PrevResult is the sentinel text upstream parsers emit for "the payload
	// of the most recently completed operation".
	PrevResult = "$result_of_previous_tool"

	// ResultOfPrefix followed by a tool name refers to the most recent result
	// produced by that tool, e.g. "$result_of:Query".
	ResultOfPrefix = "$result_of:"

	// LiteralKey wraps a value that must be taken literally even when it
	// looks like a reference: {"$literal": "$result_of_previous_tool"}.
	LiteralKey = "$literal"
)

// ErrBadOperation is returned when an operation list cannot be decoded.
var ErrBadOperation = errors.New("bad operation")

// Ref points at an earlier result in the run history. The zero Ref is the
// most recent result; a non-empty Tool selects the most recent result
// produced by that tool.
type Ref struct {
	Tool string
}

func (r Ref) String() string {
	if r.Tool == "" {
		return PrevResult
	}
	return ResultOfPrefix + r.Tool
}

// Value is one operation argument: a literal or a reference to a prior
// result. The zero Value is the literal nil.
type Value struct {
	lit any
	ref *Ref
}

// Lit wraps a literal argument.
func Lit(v any) Value { return Value{lit: v} }

// RefTo wraps a result reference.
func RefTo(r Ref) Value { return Value{ref: &r} }

// Prev is a reference to the most recent result.
func Prev() Value { return RefTo(Ref{}) }

// Ref reports the reference held by v, if any.
func (v Value) Ref() (Ref, bool) {
	if v.ref == nil {
		return Ref{}, false
	}
	return *v.ref, true
}

// IsRef reports whether v refers to a prior result.
func (v Value) IsRef() bool { return v.ref != nil }

// Literal returns the literal held by v. ok is false for references.
func (v Value) Literal() (any, bool) {
	if v.ref != nil {
		return nil, false
	}
	return v.lit, true
}

func (v Value) String() string {
	if v.ref != nil {
		return v.ref.String()
	}
	return fmt.Sprintf("%v", v.lit)
}

// Args holds named operation arguments.
type Args map[string]Value

// Clone returns a shallow copy of a.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	maps.Copy(out, a)
	return out
}

// Refs returns the names of arguments holding references, in no particular
// order.
func (a Args) Refs() []string {
	var names []string
	for k, v := range a {
		if v.IsRef() {
			names = append(names, k)
		}
	}
	return names
}

// Operation names one primitive tool and its arguments.
type Operation struct {
	Tool string
	Args Args
}

// New builds an Operation from plain values, converting sentinel strings
// into references the same way the decoders do.
func New(tool string, args map[string]any) Operation {
	out := make(Args, len(args))
	for k, v := range args {
		out[k] = ValueOf(v)
	}
	return Operation{Tool: tool, Args: out}
}

// Clone returns a copy of o whose argument map can be rewritten freely.
func (o Operation) Clone() Operation {
	return Operation{Tool: o.Tool, Args: o.Args.Clone()}
}

func (o Operation) String() string {
	keys := make([]string, 0, len(o.Args))
	for k := range o.Args {
		keys = append(keys, k)
	}
	return fmt.Sprintf("%s(%s)", o.Tool, strings.Join(keys, ","))
}

// ValueOf converts a decoded value into a Value, recognising the wire forms
// of references and the literal escape.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case Value:
		return t
	case string:
		if t == PrevResult {
			return Prev()
		}
		if name, ok := strings.CutPrefix(t, ResultOfPrefix); ok && name != "" {
			return RefTo(Ref{Tool: name})
		}
	case map[string]any:
		if inner, ok := t[LiteralKey]; ok && len(t) == 1 {
			return Lit(inner)
		}
	}
	return Lit(v)
}

// Row is one relational row keyed by column name.
type Row map[string]any

// Clone returns a copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	maps.Copy(out, r)
	return out
}

// CloneRows copies every row so callers can add columns without touching
// the input.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Record is one completed operation in the result history.
type Record struct {
	Tool    string `json:"tool_name"`
	Payload any    `json:"payload"`
}
