package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/essim/internal/horizon"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	stageSystem     = "system"
	stageObjective  = "objective"
	stageController = "controller"
)

// Simulator drives systems, objectives and controllers over a time base
// in that order at every step.
type Simulator struct {
	tb          *horizon.TimeBase
	systems     []Plant
	objectives  []Objective
	controllers []Controller
	mapping     []int

	metrics   []Metric
	observers []Observer
	log       *zap.Logger
	parallel  bool
	ran       bool

	view StepView
}

func New(tb *horizon.TimeBase, comps Components, mapping ObjectiveMap) (*Simulator, error) {
	if tb == nil {
		return nil, fmt.Errorf("%w: nil time base", horizon.ErrConfig)
	}
	for i, s := range comps.Systems {
		if s == nil {
			return nil, fmt.Errorf("%w: system %d is nil", horizon.ErrConfig, i)
		}
	}
	for i, o := range comps.Objectives {
		if o == nil {
			return nil, fmt.Errorf("%w: objective %d is nil", horizon.ErrConfig, i)
		}
	}
	for i, c := range comps.Controllers {
		if c == nil {
			return nil, fmt.Errorf("%w: controller %d is nil", horizon.ErrConfig, i)
		}
	}
	idx, err := mapping.resolve(len(comps.Controllers), len(comps.Objectives))
	if err != nil {
		return nil, err
	}
	if err := checkWiring(comps); err != nil {
		return nil, err
	}

	s := &Simulator{
		tb:          tb,
		systems:     append([]Plant(nil), comps.Systems...),
		objectives:  append([]Objective(nil), comps.Objectives...),
		controllers: append([]Controller(nil), comps.Controllers...),
		mapping:     idx,
		log:         zap.NewNop(),
	}
	s.view.Objectives = make([]float64, len(s.objectives))
	s.view.Controls = make([][]float64, len(s.controllers))
	for k, c := range s.controllers {
		s.view.Controls[k] = make([]float64, c.Channels())
	}
	return s, nil
}

// checkWiring requires every plant and objective to be bound, and only to
// components driven by the same simulator.
func checkWiring(comps Components) error {
	controllers := make(map[any]bool, len(comps.Controllers))
	for _, c := range comps.Controllers {
		controllers[c] = true
	}
	systems := make(map[any]bool, len(comps.Systems))
	for _, p := range comps.Systems {
		systems[p] = true
	}

	for _, p := range comps.Systems {
		sources := p.Sources()
		if len(sources) == 0 {
			return fmt.Errorf("%w: system %q has no controllers", horizon.ErrNotBound, p.Name())
		}
		for i, src := range sources {
			if !controllers[src] {
				return fmt.Errorf("%w: system %q reads source %d from outside the simulation", horizon.ErrConfig, p.Name(), i)
			}
		}
	}
	for _, o := range comps.Objectives {
		measured := o.Systems()
		if len(measured) == 0 {
			return fmt.Errorf("%w: objective %q measures no systems", horizon.ErrNotBound, o.Name())
		}
		for _, m := range measured {
			if !systems[m] {
				return fmt.Errorf("%w: objective %q measures system %q from outside the simulation", horizon.ErrConfig, o.Name(), m.Name())
			}
		}
	}
	return nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetLogger replaces the no-op logger. A nil logger restores it.
func (s *Simulator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	s.log = l
}

// SetParallel runs the components of each stage concurrently. Stages
// still complete one after another.
func (s *Simulator) SetParallel(on bool) { s.parallel = on }

func (s *Simulator) TimeBase() *horizon.TimeBase { return s.tb }

// Mapping returns the resolved controller-to-objective indices.
func (s *Simulator) Mapping() []int { return append([]int(nil), s.mapping...) }

// Run executes the whole horizon. On cancellation or a step failure the
// partial result up to the last completed step is returned with the error.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.ran {
		return nil, horizon.ErrAlreadyRun
	}
	s.ran = true

	n := s.tb.Len()
	result := &Result{
		Times:      make([]float64, 0, n),
		Objectives: make([][]float64, len(s.objectives)),
		Controls:   make([][]float64, len(s.controllers)),
		Metrics:    make(map[string]float64),
	}
	for j := range result.Objectives {
		result.Objectives[j] = make([]float64, 0, n)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	s.log.Info("run started",
		zap.Int("systems", len(s.systems)),
		zap.Int("objectives", len(s.objectives)),
		zap.Int("controllers", len(s.controllers)),
		zap.Int("steps", n),
		zap.Float64("dt", s.tb.Dt()),
		zap.Bool("parallel", s.parallel),
	)
	start := time.Now()

	var runErr error
	for kt := 0; kt < n; kt++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if err := s.step(ctx, kt); err != nil {
			runErr = err
			s.log.Error("step failed", zap.Int("step", kt), zap.Error(err))
			break
		}

		s.record(result, kt)
		for _, m := range s.metrics {
			m.Observe(s.view)
		}
		for _, o := range s.observers {
			o.OnStep(s.view)
		}
	}

	if result.Steps > 0 {
		for k, c := range s.controllers {
			last := make([]float64, c.Channels())
			if err := c.ControlInto(last, result.Steps-1); err == nil {
				result.Controls[k] = last
			}
		}
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Elapsed = time.Since(start)

	if runErr != nil {
		s.log.Warn("run stopped", zap.Int("completed", result.Steps), zap.Error(runErr))
		return result, runErr
	}
	s.log.Info("run finished", zap.Int("steps", result.Steps), zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (s *Simulator) step(ctx context.Context, kt int) error {
	if err := s.stage(ctx, kt, stageSystem, len(s.systems), s.stepSystem); err != nil {
		return err
	}
	if err := s.stage(ctx, kt, stageObjective, len(s.objectives), s.stepObjective); err != nil {
		return err
	}
	return s.stage(ctx, kt, stageController, len(s.controllers), s.stepController)
}

// stage runs fn for every component index. In parallel mode the errgroup
// wait is the barrier before the next stage.
func (s *Simulator) stage(ctx context.Context, kt int, name string, count int, fn func(kt, i int) error) error {
	if !s.parallel || count < 2 {
		for i := 0; i < count; i++ {
			if err := fn(kt, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error { return fn(kt, i) })
	}
	return g.Wait()
}

func (s *Simulator) stepSystem(kt, i int) error {
	sys := s.systems[i]
	if err := sys.Step(kt); err != nil {
		return s.wrap(kt, stageSystem, sys.Name(), err)
	}
	return nil
}

func (s *Simulator) stepObjective(kt, i int) error {
	obj := s.objectives[i]
	if err := obj.CollectMeasurements(kt); err != nil {
		return s.wrap(kt, stageObjective, obj.Name(), err)
	}
	if err := obj.Evaluate(kt); err != nil {
		return s.wrap(kt, stageObjective, obj.Name(), err)
	}
	return nil
}

func (s *Simulator) stepController(kt, k int) error {
	c := s.controllers[k]
	psi, err := s.objectives[s.mapping[k]].Value(kt)
	if err != nil {
		return s.wrap(kt, stageController, c.Name(), err)
	}
	if err := c.RecordObjective(kt, psi); err != nil {
		return s.wrap(kt, stageController, c.Name(), err)
	}
	if err := c.Advance(kt); err != nil {
		return s.wrap(kt, stageController, c.Name(), err)
	}
	return nil
}

func (s *Simulator) wrap(kt int, stage, component string, err error) error {
	return &horizon.StepError{Step: kt, Time: s.tb.At(kt), Stage: stage, Component: component, Err: err}
}

// record fills the step view and appends the completed step to result.
func (s *Simulator) record(result *Result, kt int) {
	t := s.tb.At(kt)
	s.view.Step = kt
	s.view.Time = t
	for j, o := range s.objectives {
		v, _ := o.Value(kt)
		s.view.Objectives[j] = v
		result.Objectives[j] = append(result.Objectives[j], v)
	}
	for k, c := range s.controllers {
		// Advance(kt) succeeded and the buffer was sized from Channels.
		_ = c.ControlInto(s.view.Controls[k], kt)
	}
	result.Times = append(result.Times, t)
	result.Steps = kt + 1
}
