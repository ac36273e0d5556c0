package optim

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/experiment"
)

// Trial is one evaluated grid point. Err is set when the scenario failed
// to build or run; Value is then +Inf.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// GridSearch evaluates every combination of controller tuning values and
// ranks them by a run metric, lowest first.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// NewGridSearch pairs params with ranges. A param is "aes", "kint" or
// "fes" for every controller, or "<controller>.<param>" for one.
func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search needs one range per parameter, got %d params and %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %s has an empty range", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs base once per grid point and returns the trials sorted by
// metric, best first. It stops early only when ctx is done.
func (g *GridSearch) Search(ctx context.Context, base *config.Scenario, metricName string, opts ...experiment.Option) ([]Trial, error) {
	var trials []Trial
	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		trials = append(trials, g.evaluate(ctx, base, params, metricName, opts))
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Value < trials[j].Value })
	return trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Scenario, params map[string]float64, metricName string, opts []experiment.Option) Trial {
	trial := Trial{Params: params, Value: math.Inf(1)}

	sc := base.Clone()
	if err := Apply(sc, params); err != nil {
		trial.Err = err
		return trial
	}
	if !slices.Contains(sc.Metrics, metricName) {
		sc.Metrics = append(sc.Metrics, metricName)
	}

	result, err := experiment.New(sc, opts...).Run(ctx)
	if err != nil {
		trial.Err = err
		return trial
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		trial.Err = fmt.Errorf("metric %s not reported", metricName)
		return trial
	}
	if !math.IsNaN(val) {
		trial.Value = val
	}
	return trial
}

// Apply writes tuning params into the controllers of sc.
func Apply(sc *config.Scenario, params map[string]float64) error {
	for key, val := range params {
		target, param, scoped := strings.Cut(key, ".")
		if !scoped {
			param, target = key, ""
		}
		matched := false
		for i := range sc.Controllers {
			c := &sc.Controllers[i]
			if target != "" && c.Name != target {
				continue
			}
			matched = true
			switch param {
			case "aes":
				c.Aes = []float64{val}
			case "kint":
				c.Kint = []float64{val}
			case "fes":
				c.Fes = val
			default:
				return fmt.Errorf("unknown tuning parameter: %s", param)
			}
		}
		if !matched {
			return fmt.Errorf("no controller named %s", target)
		}
	}
	return nil
}
