package experiment

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/control"
	"github.com/san-kum/essim/internal/horizon"
	"github.com/san-kum/essim/internal/metrics"
	"github.com/san-kum/essim/internal/objective"
	"github.com/san-kum/essim/internal/plant"
	"github.com/san-kum/essim/internal/sim"
)

// Bundle is a scenario turned into bound components and a simulator.
type Bundle struct {
	Scenario    *config.Scenario
	TimeBase    *horizon.TimeBase
	Controllers []*control.ES
	Systems     []plant.System
	Objectives  []*objective.Function
	Sim         *sim.Simulator
}

// Build constructs, binds and wires every component of sc.
func (r *Registry) Build(sc *config.Scenario) (*Bundle, error) {
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	tb, err := horizon.New(sc.T0, sc.Dt, sc.Steps())
	if err != nil {
		return nil, errors.Wrap(err, "time base")
	}
	b := &Bundle{Scenario: sc, TimeBase: tb}

	byName := make(map[string]*control.ES)
	for _, cs := range sc.Controllers {
		es, err := buildController(tb, cs)
		if err != nil {
			return nil, errors.Wrapf(err, "controller %q", cs.Name)
		}
		b.Controllers = append(b.Controllers, es)
		byName[cs.Name] = es
	}

	systems := make(map[string]plant.System)
	for _, ss := range sc.Systems {
		sources := make([]plant.ControlSource, len(ss.Inputs))
		nu := 0
		for i, in := range ss.Inputs {
			sources[i] = byName[in]
			nu += byName[in].Channels()
		}
		sys, err := r.buildSystem(tb, ss, nu)
		if err != nil {
			return nil, errors.Wrapf(err, "system %q", ss.Name)
		}
		if err := sys.Bind(sources...); err != nil {
			return nil, errors.Wrapf(err, "bind system %q", ss.Name)
		}
		b.Systems = append(b.Systems, sys)
		systems[ss.Name] = sys
	}

	for _, spec := range sc.Objectives {
		cost, err := r.GetCost(spec.Cost)
		if err != nil {
			return nil, errors.Wrapf(err, "objective %q", spec.Name)
		}
		measured := make([]objective.Measured, len(spec.Systems))
		for i, name := range spec.Systems {
			measured[i] = systems[name]
		}
		var ref *objective.Reference
		if spec.Reference != nil {
			ref = buildReference(tb, spec.Reference)
		}
		f, err := objective.New(tb, objective.Config{Name: spec.Name, Cost: cost, Reference: ref})
		if err != nil {
			return nil, errors.Wrapf(err, "objective %q", spec.Name)
		}
		if err := f.Bind(measured...); err != nil {
			return nil, errors.Wrapf(err, "bind objective %q", spec.Name)
		}
		b.Objectives = append(b.Objectives, f)
	}

	mapping := sim.IdentityMap()
	if len(sc.Mapping) > 0 {
		mapping = sim.MapIndices(sc.Mapping...)
	}
	comps := sim.Components{}
	for _, s := range b.Systems {
		comps.Systems = append(comps.Systems, s)
	}
	for _, o := range b.Objectives {
		comps.Objectives = append(comps.Objectives, o)
	}
	for _, c := range b.Controllers {
		comps.Controllers = append(comps.Controllers, c)
	}
	b.Sim, err = sim.New(tb, comps, mapping)
	if err != nil {
		return nil, errors.Wrap(err, "simulator")
	}
	b.Sim.SetParallel(sc.Parallel)

	for _, name := range sc.Metrics {
		m, err := metrics.ByName(name)
		if err != nil {
			return nil, errors.Wrap(err, "metrics")
		}
		b.Sim.AddMetric(m)
	}
	return b, nil
}

func buildController(tb *horizon.TimeBase, cs config.ControllerSpec) (*control.ES, error) {
	mode, err := control.ParseMode(cs.Mode)
	if err != nil {
		return nil, err
	}
	probe, ok := control.ProbeByName(cs.Probe)
	if !ok {
		return nil, fmt.Errorf("%w: unknown probe %q", horizon.ErrConfig, cs.Probe)
	}
	return control.New(tb, control.Config{
		Name:      cs.Name,
		Channels:  cs.Channels,
		Fes:       cs.Fes,
		Aes:       cs.Aes,
		Kint:      cs.Kint,
		Mode:      mode,
		Thetahat0: cs.Thetahat0,
		Probe:     probe,
	})
}

func (r *Registry) buildSystem(tb *horizon.TimeBase, ss config.SystemSpec, nu int) (plant.System, error) {
	if ss.Type == config.SystemLinear {
		a, err := dense("a", ss.A)
		if err != nil {
			return nil, err
		}
		bm, err := dense("b", ss.B)
		if err != nil {
			return nil, err
		}
		c, err := dense("c", ss.C)
		if err != nil {
			return nil, err
		}
		cfg := plant.LinearConfig{Name: ss.Name, A: a, B: bm, C: c, X0: ss.X0}
		if len(ss.D) > 0 {
			d, err := dense("d", ss.D)
			if err != nil {
				return nil, err
			}
			cfg.D = d
		}
		return plant.NewLinear(tb, cfg)
	}

	f, ny, err := r.GetFunction(ss.Function, ss.Params, nu)
	if err != nil {
		return nil, err
	}
	if ss.Outputs != 0 && ss.Outputs != ny {
		return nil, fmt.Errorf("%w: function %s yields %d outputs, scenario declares %d",
			horizon.ErrDimensionMismatch, ss.Function, ny, ss.Outputs)
	}
	return plant.NewPassThrough(tb, plant.PassThroughConfig{Name: ss.Name, Outputs: ny, Func: f})
}

// dense converts row-major nested slices into a matrix.
func dense(what string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: matrix %s is empty", horizon.ErrConfig, what)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: matrix %s row %d has %d columns, want %d",
				horizon.ErrDimensionMismatch, what, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// buildReference expands a constant (optionally switching) reference
// over the time base.
func buildReference(tb *horizon.TimeBase, rs *config.ReferenceSpec) *objective.Reference {
	switchAt := tb.Len()
	if len(rs.After) > 0 {
		for k := 0; k < tb.Len(); k++ {
			if tb.At(k) >= rs.SwitchAt {
				switchAt = k
				break
			}
		}
	}

	if rs.Value != nil {
		series := make([]float64, tb.Len())
		for k := range series {
			series[k] = *rs.Value
			if k >= switchAt {
				series[k] = rs.After[0]
			}
		}
		return objective.Scalar(series)
	}

	m := mat.NewDense(len(rs.Values), tb.Len(), nil)
	for i, v := range rs.Values {
		for k := 0; k < tb.Len(); k++ {
			if k >= switchAt {
				m.Set(i, k, rs.After[i])
			} else {
				m.Set(i, k, v)
			}
		}
	}
	return objective.PerChannel(m)
}
