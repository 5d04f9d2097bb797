package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/marcelocantos/sqlops/internal/config"
	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/pipeline"
	"github.com/marcelocantos/sqlops/internal/schema"
)

type outcomeJSON struct {
	RunID   string      `json:"run_id"`
	Status  []string    `json:"status"`
	Summary string      `json:"summary"`
	Failed  int         `json:"failed"`
	Results []op.Record `json:"results"`
}

func outcomeDoc(out *pipeline.Outcome) outcomeJSON {
	results := out.Results
	if results == nil {
		results = []op.Record{}
	}
	return outcomeJSON{
		RunID:   out.RunID,
		Status:  out.Status,
		Summary: out.Summary,
		Failed:  out.Failed,
		Results: results,
	}
}

func renderOutcome(w io.Writer, out *pipeline.Outcome, format string, cat *schema.Catalog) error {
	if format == config.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomeDoc(out))
	}

	for _, s := range out.Status {
		fmt.Fprintln(w, s)
	}
	fmt.Fprintln(w, out.Summary)
	for i, r := range out.Results {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, r.Tool)
		renderPayload(w, r.Payload, cat)
	}
	return nil
}

func renderPayload(w io.Writer, payload any, cat *schema.Catalog) {
	rows, ok := payload.([]op.Row)
	if !ok {
		if payload == nil {
			fmt.Fprintln(w, "(no value)")
			return
		}
		fmt.Fprintf(w, "%v\n", payload)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	cols := columnsOf(rows, cat)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			if v := r[c]; v == nil {
				row[i] = "NULL"
			} else {
				row[i] = v
			}
		}
		t.AppendRow(row)
	}
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

// columnsOf orders the union of row keys: catalog columns first in
// declaration order, then the rest alphabetically.
func columnsOf(rows []op.Row, cat *schema.Catalog) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	var cols []string
	if cat != nil {
		for _, c := range cat.Columns() {
			if seen[c] {
				cols = append(cols, c)
			}
		}
	}
	var rest []string
	for k := range seen {
		if !slices.Contains(cols, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}
