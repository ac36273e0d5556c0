package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/essim/internal/objective"
	"github.com/san-kum/essim/internal/plant"
)

// PassFactory builds a pass-through function for nu inputs and reports
// its output width.
type PassFactory func(params map[string]float64, nu int) (plant.PassFunc, int)

type Registry struct {
	functions map[string]PassFactory
	costs     map[string]objective.CostFunc
}

func NewRegistry() *Registry {
	r := &Registry{
		functions: make(map[string]PassFactory),
		costs:     make(map[string]objective.CostFunc),
	}

	r.functions["identity"] = func(_ map[string]float64, nu int) (plant.PassFunc, int) {
		return func(u []float64) []float64 {
			return append([]float64(nil), u...)
		}, nu
	}
	r.functions["quadratic"] = func(params map[string]float64, nu int) (plant.PassFunc, int) {
		gain := param(params, "gain", 1)
		offset := param(params, "offset", 0)
		return func(u []float64) []float64 {
			y := make([]float64, len(u))
			for i, v := range u {
				d := v - offset
				y[i] = gain * d * d
			}
			return y
		}, nu
	}
	r.functions["sum_quadratic"] = func(params map[string]float64, nu int) (plant.PassFunc, int) {
		gain := param(params, "gain", 1)
		offset := param(params, "offset", 0)
		return func(u []float64) []float64 {
			sum := 0.0
			for _, v := range u {
				d := v - offset
				sum += gain * d * d
			}
			return []float64{sum}
		}, 1
	}
	r.functions["gaussian_peak"] = func(params map[string]float64, nu int) (plant.PassFunc, int) {
		center := param(params, "center", 0)
		width := param(params, "width", 1)
		height := param(params, "height", 1)
		return func(u []float64) []float64 {
			r2 := 0.0
			for _, v := range u {
				d := v - center
				r2 += d * d
			}
			return []float64{height * math.Exp(-r2/(2*width*width))}
		}, 1
	}

	r.costs["squared_error"] = objective.SquaredError
	r.costs["negated_squared_error"] = objective.NegatedSquaredError
	r.costs["absolute_error"] = objective.AbsoluteError
	r.costs["sum"] = objective.Sum

	return r
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// RegisterFunction adds or replaces a pass-through function.
func (r *Registry) RegisterFunction(name string, f PassFactory) { r.functions[name] = f }

// RegisterCost adds or replaces a cost function.
func (r *Registry) RegisterCost(name string, c objective.CostFunc) { r.costs[name] = c }

func (r *Registry) GetFunction(name string, params map[string]float64, nu int) (plant.PassFunc, int, error) {
	fn, ok := r.functions[name]
	if !ok {
		return nil, 0, fmt.Errorf("unknown function: %s", name)
	}
	f, ny := fn(params, nu)
	return f, ny, nil
}

func (r *Registry) GetCost(name string) (objective.CostFunc, error) {
	c, ok := r.costs[name]
	if !ok {
		return nil, fmt.Errorf("unknown cost: %s", name)
	}
	return c, nil
}

func (r *Registry) ListFunctions() []string { return sortedKeys(r.functions) }
func (r *Registry) ListCosts() []string     { return sortedKeys(r.costs) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
