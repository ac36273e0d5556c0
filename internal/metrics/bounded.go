package metrics

import (
	"math"

	"github.com/san-kum/essim/internal/sim"
)

// Bounded is the fraction of steps where every objective value and every
// control channel is finite and no larger than threshold in magnitude.
type Bounded struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewBounded(threshold float64) *Bounded {
	return &Bounded{
		name:      "bounded",
		threshold: threshold,
	}
}

func (b *Bounded) Name() string {
	return b.name
}

func (b *Bounded) Observe(v sim.StepView) {
	b.samples++
	if !b.within(v.Objectives) {
		b.violations++
		return
	}
	for _, theta := range v.Controls {
		if !b.within(theta) {
			b.violations++
			return
		}
	}
}

func (b *Bounded) within(vals []float64) bool {
	for _, val := range vals {
		if math.IsNaN(val) || math.Abs(val) > b.threshold {
			return false
		}
	}
	return true
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}
