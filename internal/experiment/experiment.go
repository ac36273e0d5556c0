package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/essim/internal/config"
	"github.com/san-kum/essim/internal/sim"
)

// Experiment runs one scenario.
type Experiment struct {
	scenario  *config.Scenario
	registry  *Registry
	log       *zap.Logger
	observers []sim.Observer
	bundle    *Bundle
}

type Option func(*Experiment)

func WithRegistry(r *Registry) Option { return func(e *Experiment) { e.registry = r } }
func WithLogger(l *zap.Logger) Option { return func(e *Experiment) { e.log = l } }

// WithObserver attaches o to the simulator once it is built.
func WithObserver(o sim.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

func New(sc *config.Scenario, opts ...Option) *Experiment {
	e := &Experiment{scenario: sc, registry: NewRegistry(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup builds the components. Run calls it when needed.
func (e *Experiment) Setup() error {
	b, err := e.registry.Build(e.scenario)
	if err != nil {
		return err
	}
	b.Sim.SetLogger(e.log.With(zap.String("scenario", e.scenario.Name)))
	for _, o := range e.observers {
		b.Sim.AddObserver(o)
	}
	e.bundle = b
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.bundle == nil {
		if err := e.Setup(); err != nil {
			return nil, err
		}
	}
	return e.bundle.Sim.Run(ctx)
}

// Bundle returns the built components for inspecting arrays.
func (e *Experiment) Bundle() *Bundle {
	return e.bundle
}

// Series is Bundle().Series trimmed to the steps result completed.
func (e *Experiment) Series(res *sim.Result) ([]Series, error) {
	if e.bundle == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	steps := -1
	if res != nil {
		steps = res.Steps
	}
	return e.bundle.Series(steps), nil
}
