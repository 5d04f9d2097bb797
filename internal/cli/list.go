package cli

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sqlops/internal/config"
	"github.com/marcelocantos/sqlops/internal/tool"
)

type toolInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

func toolInfos(reg *tool.Registry, filter *tool.Category) []toolInfo {
	var out []toolInfo
	for _, t := range reg.All() {
		if filter != nil && t.Category() != *filter {
			continue
		}
		out = append(out, toolInfo{
			Name:        t.Name(),
			Category:    t.Category().String(),
			Enabled:     reg.CheckCategory(t.Category()) == nil,
			Description: t.Description(),
		})
	}
	return out
}

func newListCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			var filter *tool.Category
			if category != "" {
				c, err := tool.ParseCategory(category)
				if err != nil {
					return err
				}
				filter = &c
			}
			infos := toolInfos(a.reg, filter)

			w := cmd.OutOrStdout()
			if a.cfg.Output == config.OutputJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Tool", "Category", "Enabled", "Description"})
			for _, i := range infos {
				t.AppendRow(table.Row{i.Name, i.Category, i.Enabled, i.Description})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list tools in this category")
	return cmd
}
