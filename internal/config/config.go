package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 200.0
	DefaultFes      = 1.0
	DefaultAes      = 0.1
	DefaultKint     = 0.1
	DefaultTarget   = 5.0
)

const (
	SystemPassThrough = "passthrough"
	SystemLinear      = "linear"
)

// Scenario describes a complete closed loop: controllers, the systems
// they drive and the objectives that score those systems.
type Scenario struct {
	Name        string           `yaml:"name"`
	T0          float64          `yaml:"t0"`
	Dt          float64          `yaml:"dt"`
	Duration    float64          `yaml:"duration,omitempty"`
	StepCount   int              `yaml:"steps,omitempty"`
	Parallel    bool             `yaml:"parallel,omitempty"`
	Metrics     []string         `yaml:"metrics,omitempty"`
	Controllers []ControllerSpec `yaml:"controllers"`
	Systems     []SystemSpec     `yaml:"systems"`
	Objectives  []ObjectiveSpec  `yaml:"objectives"`
	Mapping     []int            `yaml:"mapping,omitempty"`
}

type ControllerSpec struct {
	Name      string    `yaml:"name"`
	Channels  int       `yaml:"channels,omitempty"`
	Fes       float64   `yaml:"fes"`
	Aes       []float64 `yaml:"aes"`
	Kint      []float64 `yaml:"kint"`
	Mode      string    `yaml:"mode,omitempty"`
	Thetahat0 []float64 `yaml:"thetahat0,omitempty"`
	Probe     string    `yaml:"probe,omitempty"`
}

// SystemSpec is a pass-through (function + params) or a linear system
// (a, b, c, d, x0). Inputs name the controllers it reads, in order.
type SystemSpec struct {
	Name     string             `yaml:"name"`
	Type     string             `yaml:"type"`
	Inputs   []string           `yaml:"inputs"`
	Outputs  int                `yaml:"outputs,omitempty"`
	Function string             `yaml:"function,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
	A        [][]float64        `yaml:"a,omitempty"`
	B        [][]float64        `yaml:"b,omitempty"`
	C        [][]float64        `yaml:"c,omitempty"`
	D        [][]float64        `yaml:"d,omitempty"`
	X0       []float64          `yaml:"x0,omitempty"`
}

type ObjectiveSpec struct {
	Name      string         `yaml:"name"`
	Cost      string         `yaml:"cost"`
	Systems   []string       `yaml:"systems"`
	Reference *ReferenceSpec `yaml:"reference,omitempty"`
}

// ReferenceSpec is either one value shared by every output or one value
// per output. From switch_at onward the reference takes the after
// value(s) instead.
type ReferenceSpec struct {
	Value    *float64  `yaml:"value,omitempty"`
	Values   []float64 `yaml:"values,omitempty"`
	SwitchAt float64   `yaml:"switch_at,omitempty"`
	After    []float64 `yaml:"after,omitempty"`
}

// DefaultScenario is a single-channel controller minimizing
// (theta - 5)^2 through an identity plant.
func DefaultScenario() *Scenario {
	target := DefaultTarget
	return &Scenario{
		Name:     "default",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Metrics:  []string{"control_effort", "final_cost"},
		Controllers: []ControllerSpec{{
			Name: "es0",
			Fes:  DefaultFes,
			Aes:  []float64{DefaultAes},
			Kint: []float64{DefaultKint},
			Mode: "minimize",
		}},
		Systems: []SystemSpec{{
			Name:     "plant0",
			Type:     SystemPassThrough,
			Inputs:   []string{"es0"},
			Outputs:  1,
			Function: "identity",
		}},
		Objectives: []ObjectiveSpec{{
			Name:      "obj0",
			Cost:      "squared_error",
			Systems:   []string{"plant0"},
			Reference: &ReferenceSpec{Value: &target},
		}},
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML over an empty scenario with the default step size.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{Dt: DefaultDt}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func Save(path string, sc *Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return errors.Wrap(err, "encode scenario")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write scenario %s", path)
	}
	return nil
}

// Clone deep-copies the scenario through YAML.
func (s *Scenario) Clone() *Scenario {
	data, err := yaml.Marshal(s)
	if err != nil {
		panic(err)
	}
	out := &Scenario{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// Steps is the horizon length: steps when set, else duration/dt rounded.
func (s *Scenario) Steps() int {
	if s.StepCount > 0 {
		return s.StepCount
	}
	if s.Dt <= 0 {
		return 0
	}
	return int(math.Round(s.Duration / s.Dt))
}

// Validate checks the scenario's shape and cross references. Numeric
// constraints that depend on the components are left to their
// constructors.
func (s *Scenario) Validate() error {
	if !(s.Dt > 0) || math.IsInf(s.Dt, 0) {
		return errors.Errorf("dt must be positive, got %v", s.Dt)
	}
	if s.StepCount < 0 {
		return errors.Errorf("steps must not be negative, got %d", s.StepCount)
	}
	if s.Steps() < 1 {
		return errors.Errorf("horizon is empty (duration %v, dt %v)", s.Duration, s.Dt)
	}
	if len(s.Controllers) == 0 {
		return errors.New("scenario has no controllers")
	}

	names := make(map[string]string)
	claim := func(kind, name string) error {
		if name == "" {
			return errors.Errorf("%s without a name", kind)
		}
		if prev, ok := names[name]; ok {
			return errors.Errorf("%s %q reuses the name of a %s", kind, name, prev)
		}
		names[name] = kind
		return nil
	}

	for _, c := range s.Controllers {
		if err := claim("controller", c.Name); err != nil {
			return err
		}
	}
	for _, sys := range s.Systems {
		if err := claim("system", sys.Name); err != nil {
			return err
		}
		if err := sys.validate(names); err != nil {
			return err
		}
	}
	for _, o := range s.Objectives {
		if err := claim("objective", o.Name); err != nil {
			return err
		}
		if o.Cost == "" {
			return errors.Errorf("objective %q has no cost", o.Name)
		}
		if len(o.Systems) == 0 {
			return errors.Errorf("objective %q measures no systems", o.Name)
		}
		for _, ref := range o.Systems {
			if names[ref] != "system" {
				return errors.Errorf("objective %q measures unknown system %q", o.Name, ref)
			}
		}
		if o.Reference != nil {
			if err := o.Reference.validate(); err != nil {
				return errors.Wrapf(err, "objective %q", o.Name)
			}
		}
	}

	if len(s.Mapping) == 0 {
		if len(s.Objectives) < len(s.Controllers) {
			return errors.Errorf("%d controllers need a mapping onto %d objectives", len(s.Controllers), len(s.Objectives))
		}
		return nil
	}
	if len(s.Mapping) != len(s.Controllers) {
		return errors.Errorf("mapping has %d entries for %d controllers", len(s.Mapping), len(s.Controllers))
	}
	for k, j := range s.Mapping {
		if j < 0 || j >= len(s.Objectives) {
			return errors.Errorf("mapping[%d] = %d is not an objective index", k, j)
		}
	}
	return nil
}

func (sys *SystemSpec) validate(names map[string]string) error {
	if len(sys.Inputs) == 0 {
		return errors.Errorf("system %q has no inputs", sys.Name)
	}
	for _, in := range sys.Inputs {
		if names[in] != "controller" {
			return errors.Errorf("system %q reads unknown controller %q", sys.Name, in)
		}
	}
	switch sys.Type {
	case SystemPassThrough, "":
		if sys.Function == "" {
			return errors.Errorf("pass-through %q has no function", sys.Name)
		}
	case SystemLinear:
		if len(sys.A) == 0 || len(sys.B) == 0 || len(sys.C) == 0 {
			return errors.Errorf("linear system %q needs a, b and c", sys.Name)
		}
	default:
		return errors.Errorf("system %q has unknown type %q", sys.Name, sys.Type)
	}
	return nil
}

func (r *ReferenceSpec) validate() error {
	switch {
	case r.Value != nil && len(r.Values) > 0:
		return errors.New("reference sets both value and values")
	case r.Value == nil && len(r.Values) == 0:
		return errors.New("reference sets neither value nor values")
	}
	if len(r.After) == 0 {
		return nil
	}
	want := 1
	if r.Value == nil {
		want = len(r.Values)
	}
	if len(r.After) != want {
		return errors.Errorf("reference after has %d values, want %d", len(r.After), want)
	}
	return nil
}
