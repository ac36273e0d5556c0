package objective

import (
	"fmt"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// Measured is a system whose outputs feed an objective.
type Measured interface {
	Name() string
	Outputs() int
	OutputInto(dst []float64, kt int) error
}

type Config struct {
	Name      string
	Cost      CostFunc
	Reference *Reference
}

// Function aggregates system outputs into a scalar cost per timestep.
type Function struct {
	name    string
	tb      *horizon.TimeBase
	cost    CostFunc
	ref     *Reference
	systems []Measured
	ny      int

	y     *mat.Dense
	psi   []float64
	ycol  []float64
	ystar []float64

	collected horizon.Cursor
	evaluated horizon.Cursor
}

func New(tb *horizon.TimeBase, cfg Config) (*Function, error) {
	if tb == nil {
		return nil, fmt.Errorf("%w: nil time base", horizon.ErrConfig)
	}
	if cfg.Cost == nil {
		return nil, fmt.Errorf("%w: objective %q has no cost function", horizon.ErrConfig, cfg.Name)
	}
	if cfg.Reference != nil {
		// Row count is checked at bind time, once ny is known.
		if err := cfg.Reference.validate(tb, -1); err != nil {
			return nil, err
		}
	}
	return &Function{
		name:      cfg.Name,
		tb:        tb,
		cost:      cfg.Cost,
		ref:       cfg.Reference,
		psi:       make([]float64, tb.Len()),
		collected: horizon.NewCursor(tb.Len()),
		evaluated: horizon.NewCursor(tb.Len()),
	}, nil
}

// Bind sets the systems whose outputs are stacked, in order, into the
// measurement. It allocates a zero reference when none was supplied.
func (f *Function) Bind(systems ...Measured) error {
	if f.collected.Next() != 0 {
		return fmt.Errorf("%w: objective %q already collecting", horizon.ErrSequence, f.name)
	}
	if len(systems) == 0 {
		return fmt.Errorf("%w: objective %q bound to no systems", horizon.ErrConfig, f.name)
	}
	ny := 0
	for i, s := range systems {
		if s == nil {
			return fmt.Errorf("%w: objective %q system %d is nil", horizon.ErrConfig, f.name, i)
		}
		ny += s.Outputs()
	}
	if ny < 1 {
		return fmt.Errorf("%w: objective %q measures no outputs", horizon.ErrDimensionMismatch, f.name)
	}
	if f.ref == nil {
		f.ref = &Reference{channels: mat.NewDense(ny, f.tb.Len(), nil)}
	}
	if err := f.ref.validate(f.tb, ny); err != nil {
		return err
	}

	f.systems = append([]Measured(nil), systems...)
	f.ny = ny
	f.y = mat.NewDense(ny, f.tb.Len(), nil)
	f.ycol = make([]float64, ny)
	f.ystar = make([]float64, ny)
	return nil
}

// CollectMeasurements stacks every bound system's output at kt. Each
// system must already have stepped kt.
func (f *Function) CollectMeasurements(kt int) error {
	if f.systems == nil {
		return fmt.Errorf("%w: objective %q", horizon.ErrNotBound, f.name)
	}
	if err := f.collected.Expect("collect "+f.name, kt); err != nil {
		return err
	}
	off := 0
	for _, s := range f.systems {
		n := s.Outputs()
		if err := s.OutputInto(f.ycol[off:off+n], kt); err != nil {
			return err
		}
		off += n
	}
	f.y.SetCol(kt, f.ycol)
	f.collected.Advance()
	return nil
}

// Evaluate applies the cost to y[:,kt] and the reference at kt.
func (f *Function) Evaluate(kt int) error {
	if err := f.evaluated.Expect("evaluate "+f.name, kt); err != nil {
		return err
	}
	if !f.collected.Completed(kt) {
		return fmt.Errorf("%w: objective %q evaluated before collecting index %d", horizon.ErrSequence, f.name, kt)
	}
	y := mat.Col(nil, kt, f.y)
	f.ref.fill(f.ystar, kt)
	ystar := append([]float64(nil), f.ystar...)
	f.psi[kt] = f.cost(y, ystar)
	f.evaluated.Advance()
	return nil
}

// Value returns psi[kt] once evaluated.
func (f *Function) Value(kt int) (float64, error) {
	if !f.evaluated.Completed(kt) {
		return 0, fmt.Errorf("%w: objective %q has no value for index %d", horizon.ErrSequence, f.name, kt)
	}
	return f.psi[kt], nil
}

// Systems returns the bound systems in stacking order; nil before Bind.
func (f *Function) Systems() []Measured {
	if f.systems == nil {
		return nil
	}
	return append([]Measured(nil), f.systems...)
}

func (f *Function) Name() string          { return f.name }
func (f *Function) Outputs() int          { return f.ny }
func (f *Function) Psi() []float64        { return append([]float64(nil), f.psi...) }
func (f *Function) Steps() int            { return f.evaluated.Next() }
func (f *Function) Reference() *Reference { return f.ref }

// Measurements returns the stacked y array; nil before Bind.
func (f *Function) Measurements() mat.Matrix {
	if f.y == nil {
		return nil
	}
	return f.y
}
