package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// ChartOptions sizes a chart. Zero values pick 80x12.
type ChartOptions struct {
	Width   int
	Height  int
	Caption string
}

// Chart draws values as an asciigraph line chart. Long series are
// downsampled by averaging into Width buckets; non-finite samples are
// dropped. It returns "" when nothing is plottable.
func Chart(values []float64, opts ChartOptions) string {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 12
	}
	data := Downsample(values, opts.Width)
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(opts.Caption),
	)
}

// Downsample averages values into at most n buckets, skipping
// non-finite samples and empty buckets.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(values) <= n {
		out := make([]float64, 0, len(values))
		for _, v := range values {
			if finite(v) {
				out = append(out, v)
			}
		}
		return out
	}

	out := make([]float64, 0, n)
	for b := 0; b < n; b++ {
		lo := b * len(values) / n
		hi := (b + 1) * len(values) / n
		sum, count := 0.0, 0
		for _, v := range values[lo:hi] {
			if finite(v) {
				sum += v
				count++
			}
		}
		if count > 0 {
			out = append(out, sum/float64(count))
		}
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func bounds(values []float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if !finite(v) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	return lo, hi, ok
}
