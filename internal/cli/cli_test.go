package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/sqlops/internal/config"
)

const queryThenSort = `[
  {"tool_name": "Query", "args": {"conditions": {
    "table": "workers",
    "fields": ["qualified products", "gender"],
    "where": "gender='female'"}}},
  {"tool_name": "sorting", "args": {
    "data": "$result_of_previous_tool",
    "field_index": "Qualified_Number",
    "reverse": true}}
]`

// isolate runs the test in an empty directory with an empty home and
// returns the directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func seedWorkers(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE workers (ID INTEGER, Name TEXT, Gender TEXT, Qualified_Number INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO workers VALUES
		(1, 'Ann', 'female', 12),
		(2, 'Bob', 'male', 30),
		(3, 'Cat', 'female', 40),
		(4, 'Dee', 'female', 7)`)
	require.NoError(t, err)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd("test")
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	t.Log(errOut.String())
	return out.String(), err
}

func TestRunJSON(t *testing.T) {
	dir := isolate(t)
	seedWorkers(t, filepath.Join(dir, "workers.db"))

	out, err := execute(t, queryThenSort, "run", "-o", "json", "--database", "workers.db", "-")
	require.NoError(t, err)

	var doc struct {
		Status  []string `json:"status"`
		Summary string   `json:"summary"`
		Results []struct {
			Tool    string           `json:"tool_name"`
			Payload []map[string]any `json:"payload"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []string{"Query done. Rows=3", "Sorting done. Rows=3"}, doc.Status)
	assert.Equal(t, "All operations done.", doc.Summary)
	require.Len(t, doc.Results, 2)

	var got []float64
	for _, r := range doc.Results[1].Payload {
		got = append(got, r["Qualified_Number"].(float64))
	}
	assert.Equal(t, []float64{40, 12, 7}, got)

	out, err = execute(t, "", "audit", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "integrity verified")

	out, err = execute(t, "", "audit", "tail", "-o", "json")
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"Query", "Sorting"}, entries[0]["tools"])
}

func TestRunTable(t *testing.T) {
	dir := isolate(t)
	seedWorkers(t, filepath.Join(dir, "workers.db"))

	out, err := execute(t, queryThenSort, "run", "--database", "workers.db")
	require.NoError(t, err)
	assert.Contains(t, out, "Sorting done. Rows=3")
	assert.Contains(t, out, "Qualified_Number")
	assert.Contains(t, out, "(3 rows)")
}

func TestRunStrict(t *testing.T) {
	isolate(t)
	ops := `[{"tool_name":"Addition","args":{"number1":1,"number2":2}},{"tool_name":"Foo","args":{}}]`

	out, err := execute(t, ops, "run", "--strict")
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.Code)
	assert.ErrorIs(t, err, ErrOperationsFailed)
	assert.Contains(t, out, "Tool 'Foo' not found in tools.")

	_, err = execute(t, ops, "run")
	assert.NoError(t, err)
}

func TestRunJSONWithNonFiniteResult(t *testing.T) {
	isolate(t)
	ops := `[
	  {"tool_name":"Multiplication","args":{"number1":1e308,"number2":10}},
	  {"tool_name":"Division","args":{"number1":"NaN","number2":1}},
	  {"tool_name":"Addition","args":{"number1":1,"number2":2}}
	]`

	out, err := execute(t, ops, "run", "-o", "json")
	require.NoError(t, err)

	var doc struct {
		Status  []string `json:"status"`
		Failed  int      `json:"failed"`
		Results []struct {
			Tool    string  `json:"tool_name"`
			Payload float64 `json:"payload"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Status, 3)
	assert.True(t, strings.HasPrefix(doc.Status[0], "Error running 'Multiplication': "), doc.Status[0])
	assert.True(t, strings.HasPrefix(doc.Status[1], "Error running 'Division': "), doc.Status[1])
	assert.Equal(t, "Addition done.", doc.Status[2])
	assert.Equal(t, 2, doc.Failed)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, 3.0, doc.Results[0].Payload)
}

func TestRunRejectsBadInput(t *testing.T) {
	isolate(t)
	_, err := execute(t, `{"success": false}`, "run")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "list", "--category", "aggregate", "-o", "json")
	require.NoError(t, err)

	var infos []toolInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	var names []string
	for _, i := range infos {
		names = append(names, i.Name)
	}
	assert.ElementsMatch(t, []string{"Averaging", "Mode"}, names)

	_, err = execute(t, "", "list", "--category", "shell")
	assert.Error(t, err)
}

func TestNormalizeAndPatch(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "normalize", "-o", "json", "sex", "gendr")
	require.NoError(t, err)
	var infos []matchInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "Gender", infos[0].Column)
	assert.Equal(t, "synonym", infos[0].Kind)
	assert.Equal(t, "Gender", infos[1].Column)

	out, err = execute(t, "", "patch", "--table", "workers", "--fields", "qualified products, gender", "--where", "gender='female'")
	require.NoError(t, err)
	assert.Equal(t, "SELECT Qualified_Number, Gender FROM workers WHERE Gender='female'\n", out)
}

func TestMCPTools(t *testing.T) {
	home := isolate(t)
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	a, err := newApp(cfg, io.Discard)
	require.NoError(t, err)

	call := func(name string, args map[string]any) *mcp.CallToolResult {
		t.Helper()
		var req mcp.CallToolRequest
		req.Params.Name = name
		req.Params.Arguments = args
		var res *mcp.CallToolResult
		switch name {
		case "run_pipeline":
			res, err = a.mcpRunPipeline(context.Background(), req)
		case "normalize_column":
			res, err = a.mcpNormalizeColumn(context.Background(), req)
		case "list_tools":
			res, err = a.mcpListTools(context.Background(), req)
		}
		require.NoError(t, err)
		return res
	}
	text := func(res *mcp.CallToolResult) string {
		t.Helper()
		require.Len(t, res.Content, 1)
		tc, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)
		return tc.Text
	}

	res := call("run_pipeline", map[string]any{
		"operations": `[{"tool_name":"Addition","args":{"number1":50,"number2":5}}]`,
	})
	assert.False(t, res.IsError)
	var doc outcomeJSON
	require.NoError(t, json.Unmarshal([]byte(text(res)), &doc))
	assert.Equal(t, []string{"Addition done."}, doc.Status)
	assert.Equal(t, 55.0, doc.Results[0].Payload)

	res = call("run_pipeline", map[string]any{})
	assert.True(t, res.IsError)

	res = call("normalize_column", map[string]any{"name": "qualifiedproducts"})
	assert.Contains(t, text(res), `"column":"Qualified_Number"`)

	res = call("list_tools", nil)
	assert.Contains(t, text(res), `"name":"Plan_KPI"`)

	tail, err := execute(t, "", "audit", "tail", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, tail, `"origin": "mcp"`)
	assert.FileExists(t, filepath.Join(home, ".local", "share", "sqlops", "audit.jsonl"))
}
