package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Settling describes how a series approaches a target.
type Settling struct {
	// Index is the first sample after which the series stays within the
	// band; -1 if it never settles.
	Index int
	Time  float64
	// Final is the last sample, TailMean and TailStd cover the last tenth.
	Final    float64
	TailMean float64
	TailStd  float64
	MaxError float64
}

// Settled reports whether the series ended inside the band for good.
func (s Settling) Settled() bool { return s.Index >= 0 }

// Settle finds when series enters |v - target| <= tol and never leaves.
func Settle(series []float64, dt, target, tol float64) Settling {
	res := Settling{Index: -1}
	n := len(series)
	if n == 0 {
		return res
	}

	idx := -1
	for i := n - 1; i >= 0; i-- {
		if math.Abs(series[i]-target) > tol {
			break
		}
		idx = i
	}
	res.Index = idx
	if idx >= 0 {
		res.Time = float64(idx) * dt
	}

	for _, v := range series {
		res.MaxError = math.Max(res.MaxError, math.Abs(v-target))
	}

	tail := series[n-max(1, n/10):]
	res.Final = series[n-1]
	res.TailMean, res.TailStd = stat.MeanStdDev(tail, nil)
	if math.IsNaN(res.TailStd) {
		res.TailStd = 0
	}
	return res
}
