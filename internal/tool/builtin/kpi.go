package builtin

import (
	"context"

	"github.com/marcelocantos/sqlops/internal/tool"
)

// KPI divides a produced count by work time, 0 when work time is zero.
type KPI struct {
	name  string
	count string
}

var _ tool.Tool = (*KPI)(nil)

// KPIs returns the plan, real and qualified KPI tools.
func KPIs() []*KPI {
	return []*KPI{
		{name: "Plan_KPI", count: "plan_number"},
		{name: "Real_KPI", count: "real_number"},
		{name: "Qualified_KPI", count: "q_number"},
	}
}

func (k *KPI) Name() string            { return k.name }
func (k *KPI) Description() string     { return k.count + " / work_time" }
func (k *KPI) Category() tool.Category { return tool.CategoryArithmetic }

func (k *KPI) Invoke(_ context.Context, p tool.Params) (any, error) {
	n, err := number(p[k.count])
	if err != nil {
		return nil, invalid("%s: %v", k.count, err)
	}
	wt, err := number(p["work_time"])
	if err != nil {
		return nil, invalid("work_time: %v", err)
	}
	if wt == 0 {
		return 0.0, nil
	}
	return finite(n / wt)
}
