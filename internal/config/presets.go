package config

import "sort"

func ptr(v float64) *float64 { return &v }

var Presets = map[string]*Scenario{
	"quadratic_1d": {
		Name: "quadratic_1d", Dt: 0.01, Duration: 200,
		Metrics: []string{"control_effort", "final_cost"},
		Controllers: []ControllerSpec{
			{Name: "es0", Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.1}, Mode: "minimize"},
		},
		Systems: []SystemSpec{
			{Name: "plant0", Type: SystemPassThrough, Inputs: []string{"es0"}, Outputs: 1, Function: "identity"},
		},
		Objectives: []ObjectiveSpec{
			{Name: "obj0", Cost: "squared_error", Systems: []string{"plant0"}, Reference: &ReferenceSpec{Value: ptr(5)}},
		},
	},
	"quadratic_2d": {
		Name: "quadratic_2d", Dt: 0.01, Duration: 200,
		Metrics: []string{"control_effort", "final_cost"},
		Controllers: []ControllerSpec{
			{Name: "es0", Channels: 2, Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.1}, Mode: "minimize"},
		},
		Systems: []SystemSpec{
			{Name: "plant0", Type: SystemPassThrough, Inputs: []string{"es0"}, Outputs: 2, Function: "identity"},
		},
		Objectives: []ObjectiveSpec{
			{Name: "obj0", Cost: "squared_error", Systems: []string{"plant0"}, Reference: &ReferenceSpec{Values: []float64{2, -1}}},
		},
	},
	"shared_objective": {
		Name: "shared_objective", Dt: 0.01, Duration: 200,
		Metrics: []string{"control_effort", "mean_cost"},
		Controllers: []ControllerSpec{
			{Name: "es0", Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.1}},
			{Name: "es1", Fes: 1.3, Aes: []float64{0.1}, Kint: []float64{0.1}},
			{Name: "es2", Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.1}},
		},
		Systems: []SystemSpec{
			{Name: "plant0", Type: SystemPassThrough, Inputs: []string{"es0", "es1"}, Outputs: 2, Function: "identity"},
			{Name: "plant1", Type: SystemPassThrough, Inputs: []string{"es2"}, Outputs: 1, Function: "identity"},
		},
		Objectives: []ObjectiveSpec{
			{Name: "obj0", Cost: "squared_error", Systems: []string{"plant0"}, Reference: &ReferenceSpec{Values: []float64{1, 3}}},
			{Name: "obj1", Cost: "squared_error", Systems: []string{"plant1"}, Reference: &ReferenceSpec{Value: ptr(-2)}},
		},
		Mapping: []int{0, 0, 1},
	},
	"lti_integrator": {
		Name: "lti_integrator", Dt: 0.01, Duration: 300,
		Metrics: []string{"control_effort", "final_cost", "bounded"},
		Controllers: []ControllerSpec{
			{Name: "es0", Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.05}},
		},
		Systems: []SystemSpec{
			{
				Name: "lag0", Type: SystemLinear, Inputs: []string{"es0"},
				A: [][]float64{{-5}}, B: [][]float64{{5}}, C: [][]float64{{1}}, D: [][]float64{{0}},
				X0: []float64{0},
			},
		},
		Objectives: []ObjectiveSpec{
			{Name: "obj0", Cost: "squared_error", Systems: []string{"lag0"}, Reference: &ReferenceSpec{Value: ptr(2)}},
		},
	},
	"peak_maximize": {
		Name: "peak_maximize", Dt: 0.01, Duration: 200,
		Metrics: []string{"control_effort", "final_cost"},
		Controllers: []ControllerSpec{
			{Name: "es0", Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.2}, Mode: "maximize", Thetahat0: []float64{1}},
		},
		Systems: []SystemSpec{
			{
				Name: "plant0", Type: SystemPassThrough, Inputs: []string{"es0"}, Outputs: 1,
				Function: "gaussian_peak", Params: map[string]float64{"center": 3, "width": 2, "height": 1},
			},
		},
		Objectives: []ObjectiveSpec{
			{Name: "obj0", Cost: "sum", Systems: []string{"plant0"}},
		},
	},
	"tracking_switch": {
		Name: "tracking_switch", Dt: 0.01, Duration: 400,
		Metrics: []string{"final_cost"},
		Controllers: []ControllerSpec{
			{Name: "es0", Fes: 1, Aes: []float64{0.1}, Kint: []float64{0.1}},
		},
		Systems: []SystemSpec{
			{Name: "plant0", Type: SystemPassThrough, Inputs: []string{"es0"}, Outputs: 1, Function: "identity"},
		},
		Objectives: []ObjectiveSpec{
			{
				Name: "obj0", Cost: "squared_error", Systems: []string{"plant0"},
				Reference: &ReferenceSpec{Value: ptr(2), SwitchAt: 200, After: []float64{-1}},
			},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Scenario {
	sc, ok := Presets[name]
	if !ok {
		return nil
	}
	return sc.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
