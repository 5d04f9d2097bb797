package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelocantos/sqlops/internal/tool"
)

// Average is the arithmetic mean of data (or of one column when field is
// set). An empty series averages to 0.
type Average struct{}

var _ tool.Tool = (*Average)(nil)

func (a *Average) Name() string            { return "Averaging" }
func (a *Average) Description() string     { return "mean of a list of numbers: data[, field]" }
func (a *Average) Category() tool.Category { return tool.CategoryAggregate }

func (a *Average) Invoke(_ context.Context, p tool.Params) (any, error) {
	vals, err := series(p)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return 0.0, nil
	}
	var sum float64
	for i, v := range vals {
		f, err := measure(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		sum += f
	}
	return finite(sum / float64(len(vals)))
}

// Mode is the most frequent value of data (or of one column when field is
// set). Ties go to the value seen first. An empty series has no mode and
// yields nil.
type Mode struct{}

var _ tool.Tool = (*Mode)(nil)

func (m *Mode) Name() string            { return "Mode" }
func (m *Mode) Description() string     { return "most common value of a list: data[, field]" }
func (m *Mode) Category() tool.Category { return tool.CategoryAggregate }

func (m *Mode) Invoke(_ context.Context, p tool.Params) (any, error) {
	vals, err := series(p)
	if err != nil {
		return nil, err
	}
	return MostCommon(vals)
}

// MostCommon returns the mode of vals. Numbers compare by value across Go
// numeric types, so 1 and 1.0 count together.
func MostCommon(vals []any) (any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	type bucket struct {
		first any
		count int
	}
	var order []modeKey
	buckets := make(map[modeKey]*bucket)
	for i, v := range vals {
		k, err := modeKeyOf(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{first: v}
			buckets[k] = b
			order = append(order, k)
		}
		b.count++
	}
	best := buckets[order[0]]
	for _, k := range order[1:] {
		if b := buckets[k]; b.count > best.count {
			best = b
		}
	}
	return best.first, nil
}

type modeKey struct {
	kind keyKind
	num  float64
	str  string
}

func modeKeyOf(v any) (modeKey, error) {
	if v == nil {
		return modeKey{kind: kindNil}, nil
	}
	if f, ok := toFloat(v); ok {
		return modeKey{kind: kindNumber, num: f}, nil
	}
	switch t := v.(type) {
	case string:
		return modeKey{kind: kindString, str: t}, nil
	case bool:
		if t {
			return modeKey{kind: kindBool, num: 1}, nil
		}
		return modeKey{kind: kindBool}, nil
	case time.Time:
		return modeKey{kind: kindTime, str: t.UTC().Format(time.RFC3339Nano)}, nil
	}
	return modeKey{}, fmt.Errorf("value %v (%T) cannot be counted", v, v)
}
