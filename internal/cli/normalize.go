package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sqlops/internal/config"
	"github.com/marcelocantos/sqlops/internal/op"
)

type matchInfo struct {
	Input  string  `json:"input"`
	Column string  `json:"column"`
	Kind   string  `json:"kind"`
	Ratio  float64 `json:"ratio,omitempty"`
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "normalize <name>...",
		Short:   "Map free-form column names onto the catalog",
		Example: `  sqlops normalize "qualified products" gendr sex`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			infos := make([]matchInfo, len(args))
			for i, name := range args {
				m := a.norm.Match(name)
				infos[i] = matchInfo{Input: name, Column: m.Name, Kind: m.Kind.String(), Ratio: m.Ratio}
			}

			w := cmd.OutOrStdout()
			if a.cfg.Output == config.OutputJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Input", "Column", "Match", "Ratio"})
			for _, i := range infos {
				ratio := ""
				if i.Ratio > 0 {
					ratio = fmt.Sprintf("%.3f", i.Ratio)
				}
				t.AppendRow(table.Row{i.Input, i.Column, i.Kind, ratio})
			}
			t.Render()
			return nil
		},
	}
}

func newPatchCmd() *cobra.Command {
	var (
		tableName string
		fields    string
		where     string
	)
	cmd := &cobra.Command{
		Use:     "patch",
		Short:   "Print the SELECT a Query operation would issue after normalization",
		Example: `  sqlops patch --table workers --fields "qualified products,gender" --where "gender='female'"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			spec := op.QuerySpec{Table: tableName, Where: where}
			if tableName == "" {
				spec.Table = a.catalog.Table()
			}
			if spec.Table == "" {
				return fmt.Errorf("patch: --table is required")
			}
			for _, f := range strings.Split(fields, ",") {
				if f = strings.TrimSpace(f); f != "" {
					spec.Fields = append(spec.Fields, f)
				}
			}
			patched := a.patcher.Patch(spec)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), patched.SQL())
			return err
		},
	}
	cmd.Flags().StringVar(&tableName, "table", "", "table name (default: catalog table)")
	cmd.Flags().StringVar(&fields, "fields", "", "comma-separated field names")
	cmd.Flags().StringVar(&where, "where", "", "where clause")
	return cmd
}
