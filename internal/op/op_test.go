package op

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantRef bool
		ref     Ref
		lit     any
	}{
		{"previous result", PrevResult, true, Ref{}, nil},
		{"named result", "$result_of:Query", true, Ref{Tool: "Query"}, nil},
		{"empty tool name stays literal", "$result_of:", false, Ref{}, "$result_of:"},
		{"plain string", "Gender", false, Ref{}, "Gender"},
		{"number", 5.0, false, Ref{}, 5.0},
		{"literal escape", map[string]any{LiteralKey: PrevResult}, false, Ref{}, PrevResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValueOf(tt.in)
			assert.Equal(t, tt.wantRef, v.IsRef())
			if tt.wantRef {
				r, ok := v.Ref()
				require.True(t, ok)
				assert.Equal(t, tt.ref, r)
				return
			}
			lit, ok := v.Literal()
			require.True(t, ok)
			assert.Equal(t, tt.lit, lit)
		})
	}
}

func TestQuerySpecSQL(t *testing.T) {
	q := QuerySpec{Table: "workers", Fields: []string{"Qualified_Number", "Gender"}, Where: "Gender='female'"}
	assert.Equal(t, "SELECT Qualified_Number, Gender FROM workers WHERE Gender='female'", q.SQL())

	q = QuerySpec{Table: "workers"}
	assert.Equal(t, "SELECT * FROM workers", q.SQL())
}

func TestQuerySpecOf(t *testing.T) {
	q, err := QuerySpecOf(map[string]any{
		"table":  "workers",
		"fields": []any{"id", "gender"},
		"where":  "gender='female'",
	})
	require.NoError(t, err)
	assert.Equal(t, QuerySpec{Table: "workers", Fields: []string{"id", "gender"}, Where: "gender='female'"}, q)

	_, err = QuerySpecOf(map[string]any{"fields": []any{1}})
	assert.Error(t, err)

	q, err = QuerySpecOf(nil)
	require.NoError(t, err)
	assert.Equal(t, QuerySpec{}, q)
}

func TestDecodeJSONEnvelope(t *testing.T) {
	src := `{
	  "success": true,
	  "operations": [
	    {"tool_name": "Query", "args": {"db_path": "w.db", "conditions": {"table": "workers", "fields": ["*"]}}},
	    {"tool_name": "Sorting", "args": {"data": "$result_of_previous_tool", "field_index": "ID", "reverse": true}}
	  ]
	}`
	ops, err := DecodeJSON(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "Query", ops[0].Tool)
	assert.Equal(t, "Sorting", ops[1].Tool)
	assert.True(t, ops[1].Args["data"].IsRef())
	rev, _ := ops[1].Args["reverse"].Literal()
	assert.Equal(t, true, rev)
}

func TestDecodeJSONList(t *testing.T) {
	ops, err := Decode([]byte(`[{"tool_name": "Addition", "args": {"number1": 50, "number2": 5}}]`))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	n, _ := ops[0].Args["number1"].Literal()
	assert.Equal(t, 50.0, n)
}

func TestDecodeYAML(t *testing.T) {
	src := `
- tool_name: Query
  args:
    conditions:
      table: workers
      fields: [qualifiedproducts, gender]
- tool_name: Averaging
  args:
    data: $result_of:Query
    field: Qualified_Number
`
	ops, err := Decode([]byte(src))
	require.NoError(t, err)
	require.Len(t, ops, 2)
	r, ok := ops[1].Args["data"].Ref()
	require.True(t, ok)
	assert.Equal(t, "Query", r.Tool)

	cond, _ := ops[0].Args["conditions"].Literal()
	q, err := QuerySpecOf(cond)
	require.NoError(t, err)
	assert.Equal(t, []string{"qualifiedproducts", "gender"}, q.Fields)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"success false", `{"success": false, "operations": []}`},
		{"missing operations", `{"success": true}`},
		{"missing tool name", `[{"args": {}}]`},
		{"args not object", `[{"tool_name": "Mode", "args": [1, 2]}]`},
		{"scalar", `"Query"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src))
			assert.ErrorIs(t, err, ErrBadOperation)
		})
	}
}

func TestCloneRowsIsolatesInput(t *testing.T) {
	in := []Row{{"a": 1}}
	out := CloneRows(in)
	out[0]["b"] = 2
	_, ok := in[0]["b"]
	assert.False(t, ok)
}
