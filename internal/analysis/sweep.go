package analysis

import (
	"math"
	"strings"
)

// SweepPoint holds the distinct late-run values of one sweep member.
type SweepPoint struct {
	Param  float64
	Values []float64
}

// SweepTail keeps the distinct values of series after index skip,
// quantized to resolution. A converged setpoint collapses to one value;
// a loop still hunting leaves a spread.
func SweepTail(param float64, series []float64, skip int, resolution float64) SweepPoint {
	if resolution <= 0 {
		resolution = 1e-3
	}
	pt := SweepPoint{Param: param}
	if skip < 0 {
		skip = 0
	}
	seen := make(map[int64]bool)
	for i := skip; i < len(series); i++ {
		v := series[i]
		key := int64(math.Round(v / resolution))
		if !seen[key] {
			seen[key] = true
			pt.Values = append(pt.Values, v)
		}
	}
	return pt
}

// SweepToASCII plots every point's values as a column, params left to
// right in the order given.
func SweepToASCII(data []SweepPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	found := false
	var lo, hi float64
	for _, p := range data {
		for _, v := range p.Values {
			if !found {
				lo, hi, found = v, v, true
				continue
			}
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	if !found {
		return ""
	}
	if hi == lo {
		hi = lo + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	for i, p := range data {
		col := min(i*width/len(data), width-1)
		for _, v := range p.Values {
			row := height - 1 - int((v-lo)/(hi-lo)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '█'
			}
		}
	}

	var sb strings.Builder
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}
