package objective

import "math"

// CostFunc maps a measurement column and the reference at the same index
// to a scalar cost. Both slices have the measurement width; it must not
// retain them.
type CostFunc func(y, ystar []float64) float64

// SquaredError is sum((y - ystar)^2).
func SquaredError(y, ystar []float64) float64 {
	sum := 0.0
	for i := range y {
		d := y[i] - ystar[i]
		sum += d * d
	}
	return sum
}

// NegatedSquaredError is -sum((y - ystar)^2), peaked at the reference.
func NegatedSquaredError(y, ystar []float64) float64 {
	return -SquaredError(y, ystar)
}

// AbsoluteError is sum(|y - ystar|).
func AbsoluteError(y, ystar []float64) float64 {
	sum := 0.0
	for i := range y {
		sum += math.Abs(y[i] - ystar[i])
	}
	return sum
}

// Sum ignores the reference and adds the measurements.
func Sum(y, ystar []float64) float64 {
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	return sum
}

// Weighted combines costs linearly.
func Weighted(costs []CostFunc, weights []float64) CostFunc {
	return func(y, ystar []float64) float64 {
		total := 0.0
		for i, c := range costs {
			w := 1.0
			if i < len(weights) {
				w = weights[i]
			}
			total += w * c(y, ystar)
		}
		return total
	}
}
