// Package schema holds the column catalog of one relation and the name
// normalization that maps free-form column names onto it.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Derived describes a column that does not exist in the relation but is
// produced by a row-wise tool from two source columns.
type Derived struct {
	Tool    string   `yaml:"tool" koanf:"tool" json:"tool"`
	Columns []string `yaml:"columns" koanf:"columns" json:"columns"`
}

// Definition is the serialisable form of a catalog.
type Definition struct {
	Table    string             `yaml:"table" koanf:"table" json:"table"`
	Columns  []string           `yaml:"columns" koanf:"columns" json:"columns"`
	Synonyms map[string]string  `yaml:"synonyms" koanf:"synonyms" json:"synonyms"`
	Derived  map[string]Derived `yaml:"derived" koanf:"derived" json:"derived"`
}

// Catalog is the read-only set of canonical column names for one relation
// plus a synonym table from lowercase phrase to canonical name.
type Catalog struct {
	table    string
	columns  []string
	lower    []string
	synonyms map[string]string
	derived  map[string]Derived
}

// New validates def and builds a Catalog. Synonym keys are lowercased;
// every synonym must target a declared column, and a synonym spelled like a
// column must target that column so normalization stays idempotent.
func New(def Definition) (*Catalog, error) {
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("catalog: no columns")
	}
	c := &Catalog{
		table:    def.Table,
		columns:  make([]string, 0, len(def.Columns)),
		lower:    make([]string, 0, len(def.Columns)),
		synonyms: make(map[string]string, len(def.Synonyms)),
		derived:  make(map[string]Derived, len(def.Derived)),
	}
	byLower := make(map[string]string, len(def.Columns))
	for _, col := range def.Columns {
		if col == "" {
			return nil, fmt.Errorf("catalog: empty column name")
		}
		l := strings.ToLower(col)
		if prev, dup := byLower[l]; dup {
			return nil, fmt.Errorf("catalog: column %q duplicates %q", col, prev)
		}
		byLower[l] = col
		c.columns = append(c.columns, col)
		c.lower = append(c.lower, l)
	}
	for phrase, target := range def.Synonyms {
		if !c.Has(target) {
			return nil, fmt.Errorf("catalog: synonym %q targets unknown column %q", phrase, target)
		}
		key := strings.ToLower(phrase)
		if col, ok := byLower[key]; ok && col != target {
			return nil, fmt.Errorf("catalog: synonym %q shadows column %q", phrase, col)
		}
		if prev, ok := c.synonyms[key]; ok && prev != target {
			return nil, fmt.Errorf("catalog: synonym %q maps to both %q and %q", key, prev, target)
		}
		c.synonyms[key] = target
	}
	for name, d := range def.Derived {
		if c.Has(name) {
			return nil, fmt.Errorf("catalog: derived column %q is already a column", name)
		}
		if len(d.Columns) != 2 {
			return nil, fmt.Errorf("catalog: derived column %q needs two source columns", name)
		}
		for _, src := range d.Columns {
			if !c.Has(src) {
				return nil, fmt.Errorf("catalog: derived column %q uses unknown column %q", name, src)
			}
		}
		c.derived[name] = Derived{Tool: d.Tool, Columns: append([]string(nil), d.Columns...)}
	}
	return c, nil
}

// MustNew is New that panics on error. For static definitions only.
func MustNew(def Definition) *Catalog {
	c, err := New(def)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a YAML catalog definition.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(def)
}

// Table returns the default relation name, possibly empty.
func (c *Catalog) Table() string { return c.table }

// Columns returns the canonical names in declaration order.
func (c *Catalog) Columns() []string { return append([]string(nil), c.columns...) }

// Has reports whether name is a canonical column (exact spelling).
func (c *Catalog) Has(name string) bool {
	for _, col := range c.columns {
		if col == name {
			return true
		}
	}
	return false
}

// Synonym looks up an already-lowercased phrase.
func (c *Catalog) Synonym(lower string) (string, bool) {
	s, ok := c.synonyms[lower]
	return s, ok
}

// Derived returns the derived column named name.
func (c *Catalog) Derived(name string) (Derived, bool) {
	d, ok := c.derived[name]
	return d, ok
}

// DerivedNames returns every derived column name.
func (c *Catalog) DerivedNames() []string {
	names := make([]string, 0, len(c.derived))
	for n := range c.derived {
		names = append(names, n)
	}
	return names
}

// Definition returns a copy of the definition c was built from, with
// lowercased synonym keys.
func (c *Catalog) Definition() Definition {
	def := Definition{
		Table:    c.table,
		Columns:  c.Columns(),
		Synonyms: make(map[string]string, len(c.synonyms)),
		Derived:  make(map[string]Derived, len(c.derived)),
	}
	for k, v := range c.synonyms {
		def.Synonyms[k] = v
	}
	for k, v := range c.derived {
		def.Derived[k] = Derived{Tool: v.Tool, Columns: append([]string(nil), v.Columns...)}
	}
	return def
}

// Workers is the built-in definition of the production-line workers
// relation.
func Workers() Definition {
	return Definition{
		Columns: []string{
			"ID",
			"Name",
			"Gender",
			"Start_Time",
			"End_Time",
			"Plan_Number",
			"Real_Number",
			"Qualified_Number",
			"Others",
		},
		Synonyms: map[string]string{
			"id":                 "ID",
			"name":               "Name",
			"gender":             "Gender",
			"sex":                "Gender",
			"start time":         "Start_Time",
			"end time":           "End_Time",
			"plan number":        "Plan_Number",
			"predicted number":   "Plan_Number",
			"real number":        "Real_Number",
			"actual number":      "Real_Number",
			"qualified number":   "Qualified_Number",
			"qualified products": "Qualified_Number",
			"qualifiedproducts":  "Qualified_Number",
		},
		Derived: map[string]Derived{
			"Work_Time": {Tool: "Subtraction", Columns: []string{"End_Time", "Start_Time"}},
		},
	}
}
