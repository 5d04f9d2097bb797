package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownTool is returned by Lookup for names nothing registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrCategoryDisabled is returned by CheckCategory.
	ErrCategoryDisabled = errors.New("category disabled")
)

// Category groups tools by the kind of work they do.
type Category int

const (
	CategoryRelational Category = iota // reads or reorders rows (Query, Sorting)
	CategoryArithmetic                 // scalar and row-wise arithmetic
	CategoryAggregate                  // reduces a sequence to one value
	CategoryConversion                 // reformats values (time parsing)
)

// Categories lists every category in declaration order.
var Categories = []Category{CategoryRelational, CategoryArithmetic, CategoryAggregate, CategoryConversion}

func (c Category) String() string {
	switch c {
	case CategoryRelational:
		return "relational"
	case CategoryArithmetic:
		return "arithmetic"
	case CategoryAggregate:
		return "aggregate"
	case CategoryConversion:
		return "conversion"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category: %q", s)
}

// Params are the resolved arguments of one invocation. References have
// already been replaced by the payloads they point at.
type Params map[string]any

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Tool is the uniform contract every primitive implements.
type Tool interface {
	// Name is the exact identifier operations use.
	Name() string

	// Description is a one-line summary for listings.
	Description() string

	// Category returns the tool's classification.
	Category() Category

	// Invoke runs the tool to completion. Implementations that block on I/O
	// honour ctx.
	Invoke(ctx context.Context, params Params) (any, error)
}

// Registry maps tool names to implementations and controls which categories
// may run.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	categories map[Category]bool
}

// NewRegistry creates an empty registry with every category enabled.
func NewRegistry() *Registry {
	r := &Registry{
		tools:      make(map[string]Tool),
		categories: make(map[Category]bool, len(Categories)),
	}
	for _, c := range Categories {
		r.categories[c] = true
	}
	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup returns the tool with exactly this name.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t, nil
}

// CheckCategory returns an error if c is disabled.
func (r *Registry) CheckCategory(c Category) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.categories[c] {
		return fmt.Errorf("%w: %s", ErrCategoryDisabled, c)
	}
	return nil
}

// SetCategory enables or disables a category.
func (r *Registry) SetCategory(c Category, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c] = enabled
}

// All returns every registered tool sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name() < tools[j].Name()
	})
	return tools
}

// Func adapts a plain function to the Tool interface.
type Func struct {
	ToolName string
	Desc     string
	Cat      Category
	Fn       func(ctx context.Context, params Params) (any, error)
}

var _ Tool = (*Func)(nil)

func (f *Func) Name() string        { return f.ToolName }
func (f *Func) Description() string { return f.Desc }
func (f *Func) Category() Category  { return f.Cat }

func (f *Func) Invoke(ctx context.Context, params Params) (any, error) {
	return f.Fn(ctx, params)
}
