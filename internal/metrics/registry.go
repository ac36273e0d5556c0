package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/essim/internal/sim"
)

var constructors = map[string]func() sim.Metric{
	"control_effort": func() sim.Metric { return NewControlEffort() },
	"mean_cost":      func() sim.Metric { return NewMeanCost(0) },
	"final_cost":     func() sim.Metric { return NewFinalCost(0) },
	"bounded":        func() sim.Metric { return NewBounded(1e6) },
}

// ByName builds a metric with its default parameters.
func ByName(name string) (sim.Metric, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return ctor(), nil
}

// Names lists every registered metric, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
