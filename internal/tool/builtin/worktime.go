package builtin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/marcelocantos/sqlops/internal/tool"
)

// WorkTime converts "HH:MM" strings to minutes since midnight.
type WorkTime struct{}

var _ tool.Tool = (*WorkTime)(nil)

func (w *WorkTime) Name() string            { return "WorkTimeCalculate" }
func (w *WorkTime) Description() string     { return "convert HH:MM strings to minutes: time_data (or data, field)" }
func (w *WorkTime) Category() tool.Category { return tool.CategoryConversion }

func (w *WorkTime) Invoke(_ context.Context, p tool.Params) (any, error) {
	var vals []any
	var err error
	if raw, ok := p["time_data"]; ok {
		if vals, err = valuesOf(raw); err != nil {
			return nil, invalid("time_data: %v", err)
		}
	} else if vals, err = series(p); err != nil {
		return nil, err
	}

	out := make([]int, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("element %d: want HH:MM string, got %T", i, v)
		}
		m, err := ParseClock(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, err := splitClock(s)
	if err != nil {
		return 0, err
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("not a clock time: %q", s)
	}
	return h*60 + m, nil
}
