package builtin

import (
	"log/slog"

	"github.com/marcelocantos/sqlops/internal/source"
	"github.com/marcelocantos/sqlops/internal/tool"
)

// Deps are the collaborators the built-in tools need.
type Deps struct {
	// Source opens data-source connections; nil uses source.SQLOpener.
	Source source.Opener
	// Database is the db_path used when a Query names none.
	Database string
	Logger   *slog.Logger
}

// RegisterAll adds all built-in tools to the registry.
func RegisterAll(r *tool.Registry, d Deps) {
	r.Register(&Query{Source: d.Source, DefaultDB: d.Database, Logger: d.Logger})
	r.Register(&Sort{})
	r.Register(&WorkTime{})
	r.Register(NewAddition(d.Logger))
	r.Register(NewSubtraction(d.Logger))
	r.Register(NewMultiplication(d.Logger))
	r.Register(NewDivision(d.Logger))
	r.Register(&Average{})
	r.Register(&Mode{})
	for _, k := range KPIs() {
		r.Register(k)
	}
}
