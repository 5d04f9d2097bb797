// Package cli implements the sqlops command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sqlops/internal/audit"
	"github.com/marcelocantos/sqlops/internal/config"
	"github.com/marcelocantos/sqlops/internal/pipeline"
	"github.com/marcelocantos/sqlops/internal/schema"
	"github.com/marcelocantos/sqlops/internal/tool"
	"github.com/marcelocantos/sqlops/internal/tool/builtin"
)

// ExitError carries a process exit status other than 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// app is everything a command needs, built once per invocation from the
// loaded configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	reg     *tool.Registry
	catalog *schema.Catalog
	norm    *schema.Normalizer
	patcher *schema.Patcher
	exec    *pipeline.Executor
	aliases map[string]string
	audit   *audit.Logger
}

type appKey struct{}

func newApp(cfg *config.Config, stderr io.Writer) (*app, error) {
	logger := cfg.Log.NewLogger(stderr)

	cat, err := cfg.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	norm := schema.NewNormalizer(cat)
	patcher := schema.NewPatcher(norm)

	reg := tool.NewRegistry()
	builtin.RegisterAll(reg, builtin.Deps{Database: cfg.Database, Logger: logger})
	cfg.ApplyCategories(reg)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		reg:     reg,
		catalog: cat,
		norm:    norm,
		patcher: patcher,
		aliases: pipeline.Aliases(reg, cfg.Tools.Aliases),
		exec: pipeline.New(reg,
			pipeline.WithPatcher(patcher),
			pipeline.WithLogger(logger),
			pipeline.WithTimeout(cfg.Tools.Timeout),
			pipeline.WithToolTimeouts(cfg.Tools.Timeouts),
		),
	}

	if cfg.Audit.Enabled {
		l, err := audit.NewLogger(cfg.Audit.Path)
		if err != nil {
			// Runs proceed without an audit trail.
			logger.Warn("audit log unavailable", "path", cfg.Audit.Path, "error", err)
		} else {
			a.audit = l
		}
	}
	return a, nil
}

func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "sqlops",
		Short: "Run structured data operations against a relational source",
		Long: `sqlops executes ordered lists of data operations (Query, Sorting,
arithmetic and aggregates) against a relational data source. Column names in
queries are normalized against a catalog before they reach the database.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, appKey{}, a))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./sqlops.yaml)")
	pf.String("database", "", "default data source for Query operations")
	pf.StringP("output", "o", config.OutputTable, "output format (table|json)")
	pf.String("catalog", "", "YAML catalog file")
	pf.Duration("timeout", config.DefaultTimeout, "per-tool invocation timeout")
	pf.String("audit-log", "", "audit log path")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-format", "text", "log format (text|json)")

	_ = root.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newRunCmd(),
		newListCmd(),
		newNormalizeCmd(),
		newPatchCmd(),
		newAuditCmd(),
		newMCPCmd(version),
	)
	return root
}
