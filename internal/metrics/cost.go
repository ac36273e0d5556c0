package metrics

import "github.com/san-kum/essim/internal/sim"

// MeanCost averages one objective's value over the run.
type MeanCost struct {
	name    string
	index   int
	sum     float64
	samples int
}

func NewMeanCost(objective int) *MeanCost {
	return &MeanCost{name: "mean_cost", index: objective}
}

func (m *MeanCost) Name() string { return m.name }

func (m *MeanCost) Observe(v sim.StepView) {
	if m.index >= len(v.Objectives) {
		return
	}
	m.sum += v.Objectives[m.index]
	m.samples++
}

func (m *MeanCost) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanCost) Reset() {
	m.sum = 0
	m.samples = 0
}

// FinalCost is the last observed value of one objective.
type FinalCost struct {
	name  string
	index int
	last  float64
}

func NewFinalCost(objective int) *FinalCost {
	return &FinalCost{name: "final_cost", index: objective}
}

func (f *FinalCost) Name() string { return f.name }

func (f *FinalCost) Observe(v sim.StepView) {
	if f.index < len(v.Objectives) {
		f.last = v.Objectives[f.index]
	}
}

func (f *FinalCost) Value() float64 { return f.last }
func (f *FinalCost) Reset()         { f.last = 0 }
