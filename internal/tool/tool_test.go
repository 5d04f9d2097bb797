package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constTool(name string, cat Category, v any) *Func {
	return &Func{
		ToolName: name,
		Desc:     "returns a constant",
		Cat:      cat,
		Fn:       func(context.Context, Params) (any, error) { return v, nil },
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(constTool("Answer", CategoryAggregate, 42))

	got, err := reg.Lookup("Answer")
	require.NoError(t, err)
	v, err := got.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = reg.Lookup("answer")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRegistryCategories(t *testing.T) {
	reg := NewRegistry()
	for _, c := range Categories {
		assert.NoError(t, reg.CheckCategory(c))
	}
	reg.SetCategory(CategoryRelational, false)
	assert.ErrorIs(t, reg.CheckCategory(CategoryRelational), ErrCategoryDisabled)
	assert.NoError(t, reg.CheckCategory(CategoryArithmetic))
}

func TestRegistryAllSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(constTool("Sorting", CategoryRelational, nil))
	reg.Register(constTool("Addition", CategoryArithmetic, nil))
	reg.Register(constTool("Mode", CategoryAggregate, nil))

	var names []string
	for _, tl := range reg.All() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"Addition", "Mode", "Sorting"}, names)
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCategory("dangerous")
	assert.Error(t, err)
}
