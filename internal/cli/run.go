package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sqlops/internal/audit"
	"github.com/marcelocantos/sqlops/internal/op"
	"github.com/marcelocantos/sqlops/internal/pipeline"
)

// ErrOperationsFailed is returned by run --strict when any operation
// produced no result.
var ErrOperationsFailed = errors.New("operations failed")

func newRunCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Execute an operation list",
		Long: `Execute an operation list read from a JSON or YAML file, or from stdin
when the file is "-" or omitted. The list is either a bare array of
{tool_name, args} objects or an envelope {"success": true, "operations": [...]}.

Use "$result_of_previous_tool" as an argument value to pass the most recent
result, or "$result_of:<Tool>" for the most recent result of one tool.`,
		Example: `  sqlops run ops.json
  sqlops run -o json ops.yaml
  cat ops.json | sqlops run --database workers.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			ops, err := op.DecodeFile(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := a.execute(cmd.Context(), ops, "cli", input)
			if err := renderOutcome(cmd.OutOrStdout(), out, a.cfg.Output, a.catalog); err != nil {
				return err
			}
			if strict && out.Failed > 0 {
				return &ExitError{Code: 2, Err: fmt.Errorf("%w: %d of %d", ErrOperationsFailed, out.Failed, len(ops))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 2 if any operation fails")
	return cmd
}

// execute prepares and runs ops, then records the run in the audit log.
func (a *app) execute(ctx context.Context, ops []op.Operation, origin, input string) *pipeline.Outcome {
	prepared := pipeline.Prepare(ops, a.aliases, a.catalog)
	out := a.exec.Run(ctx, prepared)

	if a.audit != nil {
		tools := make([]string, len(prepared))
		for i, o := range prepared {
			tools[i] = o.Tool
		}
		// Audit failures never fail the run.
		if _, err := a.audit.Log(audit.Run{
			RunID:    out.RunID,
			Origin:   origin,
			Input:    input,
			Tools:    tools,
			Results:  len(out.Results),
			Failed:   out.Failed,
			Status:   out.Status,
			Summary:  out.Summary,
			Duration: out.Duration,
		}); err != nil {
			a.logger.Warn("audit write failed", "error", err)
		}
	}
	return out
}
