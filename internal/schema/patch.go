package schema

import (
	"strings"

	"github.com/marcelocantos/sqlops/internal/op"
)

// whereOperators split identifier segments inside a where-clause word, so
// "qualifiedproducts>10" becomes "Qualified_Number>10". Splitting on
// whitespace alone would leave gender='female' unpatched.
const whereOperators = "=><()"

// stripChars surround an identifier core and are kept around the rewrite.
const stripChars = "=><()'\""

// Patcher rewrites query specs so field names and where-clause identifiers
// use canonical column names.
type Patcher struct {
	n *Normalizer
}

// NewPatcher returns a Patcher backed by n.
func NewPatcher(n *Normalizer) *Patcher {
	return &Patcher{n: n}
}

// Patch returns a rewritten copy of q. The table is passed through.
func (p *Patcher) Patch(q op.QuerySpec) op.QuerySpec {
	out := q.Clone()
	for i, f := range out.Fields {
		out.Fields[i] = p.n.Normalize(f)
	}
	if out.Where != "" {
		out.Where = p.PatchWhere(out.Where)
	}
	return out
}

// PatchWhere rewrites identifiers in a filter expression. The expression is
// split on whitespace and re-joined with single spaces; within a word the
// operator characters = > < ( ) separate segments and stay where they are.
// Each segment is stripped of quotes, normalized, and, if that changed it,
// the first occurrence of the stripped text is replaced. This is a lexical
// heuristic: quoted literals that resemble a column are rewritten as well.
func (p *Patcher) PatchWhere(where string) string {
	words := strings.Fields(where)
	for i, w := range words {
		words[i] = p.patchWord(w)
	}
	return strings.Join(words, " ")
}

func (p *Patcher) patchWord(w string) string {
	var b strings.Builder
	start := 0
	flush := func(end int) {
		if end > start {
			b.WriteString(p.patchSegment(w[start:end]))
		}
	}
	for i := 0; i < len(w); i++ {
		if strings.IndexByte(whereOperators, w[i]) >= 0 {
			flush(i)
			b.WriteByte(w[i])
			start = i + 1
		}
	}
	flush(len(w))
	return b.String()
}

func (p *Patcher) patchSegment(seg string) string {
	core := strings.Trim(seg, stripChars)
	if core == "" {
		return seg
	}
	if mapped := p.n.Normalize(core); mapped != core {
		return strings.Replace(seg, core, mapped, 1)
	}
	return seg
}
