package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/essim/internal/horizon"
	"github.com/san-kum/essim/internal/objective"
	"github.com/san-kum/essim/internal/plant"
)

// Plant is a system stepped first in every timestep. Sources must be
// controllers of the same simulator.
type Plant interface {
	Name() string
	Sources() []plant.ControlSource
	Step(kt int) error
}

// Objective turns plant outputs into a scalar cost each timestep. Systems
// must be plants of the same simulator.
type Objective interface {
	Name() string
	Systems() []objective.Measured
	CollectMeasurements(kt int) error
	Evaluate(kt int) error
	Value(kt int) (float64, error)
}

// Controller consumes an objective value and produces the control the
// plants use on the following step.
type Controller interface {
	Name() string
	Channels() int
	RecordObjective(kt int, psi float64) error
	Advance(kt int) error
	ControlInto(dst []float64, kt int) error
}

// Components groups everything a Simulator drives. Order inside each
// slice is the execution order within a stage.
type Components struct {
	Systems     []Plant
	Objectives  []Objective
	Controllers []Controller
}

// ObjectiveMap assigns each controller the objective it reads.
type ObjectiveMap struct {
	identity bool
	indices  []int
}

// IdentityMap feeds controller k from objective k.
func IdentityMap() ObjectiveMap {
	return ObjectiveMap{identity: true}
}

// MapIndices feeds controller k from objective indices[k].
func MapIndices(indices ...int) ObjectiveMap {
	return ObjectiveMap{indices: append([]int(nil), indices...)}
}

// IsIdentity reports whether m is the identity mapping.
func (m ObjectiveMap) IsIdentity() bool { return m.identity }

func (m ObjectiveMap) resolve(controllers, objectives int) ([]int, error) {
	if m.identity {
		if objectives < controllers {
			return nil, fmt.Errorf("%w: identity mapping needs %d objectives, have %d",
				horizon.ErrConfig, controllers, objectives)
		}
		idx := make([]int, controllers)
		for k := range idx {
			idx[k] = k
		}
		return idx, nil
	}
	if len(m.indices) != controllers {
		return nil, fmt.Errorf("%w: mapping has %d entries for %d controllers",
			horizon.ErrConfig, len(m.indices), controllers)
	}
	for k, j := range m.indices {
		if j < 0 || j >= objectives {
			return nil, fmt.Errorf("%w: controller %d mapped to objective %d, have %d",
				horizon.ErrConfig, k, j, objectives)
		}
	}
	return append([]int(nil), m.indices...), nil
}

// StepView is what metrics and observers see after a completed step.
// Slices are reused between steps and must not be retained.
type StepView struct {
	Step       int
	Time       float64
	Objectives []float64
	Controls   [][]float64
}

type Metric interface {
	Name() string
	Observe(v StepView)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(v StepView)
}

// Result summarizes a run. Per-component arrays stay on the components.
type Result struct {
	Steps      int
	Times      []float64
	Objectives [][]float64
	Controls   [][]float64
	Metrics    map[string]float64
	Elapsed    time.Duration
}
