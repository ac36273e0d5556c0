package metrics

import (
	"math"

	"github.com/san-kum/essim/internal/sim"
)

// ControlEffort averages, over steps, the L1 norm of every applied control
// theta stacked across controllers. The probe alone contributes about
// 2/pi * aes per channel.
type ControlEffort struct {
	total float64
	steps int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (*ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(v sim.StepView) {
	var l1 float64
	for _, theta := range v.Controls {
		for _, x := range theta {
			l1 += math.Abs(x)
		}
	}
	c.total += l1
	c.steps++
}

func (c *ControlEffort) Value() float64 {
	if c.steps == 0 {
		return 0
	}
	return c.total / float64(c.steps)
}

func (c *ControlEffort) Reset() { *c = ControlEffort{} }
