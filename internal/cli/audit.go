package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sqlops/internal/audit"
	"github.com/marcelocantos/sqlops/internal/config"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the run audit log",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check the hash chain of the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := appFrom(cmd).cfg.Audit.Path
			if err := audit.Verify(path); err != nil {
				return fmt.Errorf("audit verification FAILED: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "audit log integrity verified")
			return err
		},
	})

	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			entries, err := audit.Tail(a.cfg.Audit.Path, n)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.cfg.Output == config.OutputJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintln(w, "no audit entries")
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Seq", "Time", "Run", "Origin", "Tools", "Results", "Failed", "ms"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.Seq,
					e.Time.Local().Format("2006-01-02 15:04:05"),
					shortID(e.RunID),
					e.Origin,
					strings.Join(e.Tools, ","),
					e.Results,
					e.Failed,
					fmt.Sprintf("%.1f", e.Duration),
				})
			}
			t.Render()
			return nil
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 20, "number of entries")
	cmd.AddCommand(tail)
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
