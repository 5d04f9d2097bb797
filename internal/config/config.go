// Package config loads sqlops settings from defaults, a YAML file, SQLOPS_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/marcelocantos/sqlops/internal/schema"
	"github.com/marcelocantos/sqlops/internal/tool"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates levels: SQLOPS_AUDIT__PATH sets audit.path.
const EnvPrefix = "SQLOPS_"

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// DefaultTimeout bounds a tool invocation when nothing else is configured.
const DefaultTimeout = 30 * time.Second

// Config holds the global sqlops configuration.
type Config struct {
	// Database is the db_path used by Query operations that omit one.
	Database string        `koanf:"database"`
	Output   string        `koanf:"output"`
	Catalog  CatalogConfig `koanf:"catalog"`
	Tools    ToolsConfig   `koanf:"tools"`
	Audit    AuditConfig   `koanf:"audit"`
	Log      LogConfig     `koanf:"log"`
}

// CatalogConfig describes the relation queries run against. File, when
// set, names a separate YAML catalog and wins over the inline fields. With
// neither, the built-in workers catalog is used.
type CatalogConfig struct {
	File     string                    `koanf:"file"`
	Table    string                    `koanf:"table"`
	Columns  []string                  `koanf:"columns"`
	Synonyms map[string]string         `koanf:"synonyms"`
	Derived  map[string]schema.Derived `koanf:"derived"`
}

// ToolsConfig controls dispatch.
type ToolsConfig struct {
	Timeout    time.Duration            `koanf:"timeout"`
	Timeouts   map[string]time.Duration `koanf:"timeouts"`
	Aliases    map[string]string        `koanf:"aliases"`
	Categories map[string]bool          `koanf:"categories"`
}

// AuditConfig controls the run audit log.
type AuditConfig struct {
	Path    string `koanf:"path"`
	Enabled bool   `koanf:"enabled"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	"database":   "database",
	"output":     "output",
	"catalog":    "catalog.file",
	"timeout":    "tools.timeout",
	"audit-log":  "audit.path",
	"log-level":  "log.level",
	"log-format": "log.format",
}

func defaults() map[string]any {
	home, _ := os.UserHomeDir()
	return map[string]any{
		"output":        OutputTable,
		"tools.timeout": DefaultTimeout.String(),
		"audit.path":    filepath.Join(home, ".local", "share", "sqlops", "audit.jsonl"),
		"audit.enabled": true,
		"log.level":     "warn",
		"log.format":    "text",
	}
}

// Load builds the configuration. cfgFile may be empty, in which case
// sqlops.yaml in the working directory and then the user config path are
// tried. Only flags that were explicitly set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Catalog.File = expandHome(cfg.Catalog.File)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	candidates := []string{"sqlops.yaml", "sqlops.yml", Path()}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// Path returns the per-user config file path.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sqlops", "config.yaml")
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, p[1:])
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputTable, OutputJSON:
	default:
		return fmt.Errorf("output: must be %s or %s, got %q", OutputTable, OutputJSON, c.Output)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	for name := range c.Tools.Categories {
		if _, err := tool.ParseCategory(name); err != nil {
			return fmt.Errorf("tools.categories: %w", err)
		}
	}
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("tools.timeout: must not be negative")
	}
	return nil
}

// ApplyCategories sets the registry's category switches from the config.
// Categories not mentioned stay enabled.
func (c *Config) ApplyCategories(reg *tool.Registry) {
	for name, enabled := range c.Tools.Categories {
		cat, err := tool.ParseCategory(name)
		if err != nil {
			continue
		}
		reg.SetCategory(cat, enabled)
	}
}

// LoadCatalog builds the configured catalog.
func (c *Config) LoadCatalog() (*schema.Catalog, error) {
	if c.Catalog.File != "" {
		return schema.LoadCatalog(c.Catalog.File)
	}
	if len(c.Catalog.Columns) == 0 {
		def := schema.Workers()
		if c.Catalog.Table != "" {
			def.Table = c.Catalog.Table
		}
		return schema.New(def)
	}
	return schema.New(schema.Definition{
		Table:    c.Catalog.Table,
		Columns:  c.Catalog.Columns,
		Synonyms: c.Catalog.Synonyms,
		Derived:  c.Catalog.Derived,
	})
}

// NewLogger returns a slog logger writing to w at the configured level and
// format.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c LogConfig) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
