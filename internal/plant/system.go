package plant

import (
	"fmt"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// ControlSource supplies a block of control channels. ES controllers
// satisfy it.
type ControlSource interface {
	Channels() int
	ControlInto(dst []float64, kt int) error
}

// System is the capability shared by every plant variant.
type System interface {
	Name() string
	Bind(sources ...ControlSource) error
	Sources() []ControlSource
	Step(kt int) error
	Inputs() int
	Outputs() int
	OutputInto(dst []float64, kt int) error
	Input() mat.Matrix
	Output() mat.Matrix
}

// base holds the input stacking and bookkeeping common to all variants.
type base struct {
	name    string
	tb      *horizon.TimeBase
	ny      int
	nu      int
	sources []ControlSource
	u       *mat.Dense
	y       *mat.Dense
	ucol    []float64
	cursor  horizon.Cursor
}

func newBase(tb *horizon.TimeBase, name string, ny int) (base, error) {
	if tb == nil {
		return base{}, fmt.Errorf("%w: nil time base", horizon.ErrConfig)
	}
	if ny < 1 {
		return base{}, fmt.Errorf("%w: system %q needs at least one output, got %d", horizon.ErrConfig, name, ny)
	}
	return base{
		name:   name,
		tb:     tb,
		ny:     ny,
		y:      mat.NewDense(ny, tb.Len(), nil),
		cursor: horizon.NewCursor(tb.Len()),
	}, nil
}

// bind recomputes the input width and reallocates u. Rebinding is only
// allowed before the first step.
func (b *base) bind(sources []ControlSource) error {
	if b.cursor.Next() != 0 {
		return fmt.Errorf("%w: system %q already stepping", horizon.ErrSequence, b.name)
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w: system %q bound to no controllers", horizon.ErrConfig, b.name)
	}
	nu := 0
	for i, s := range sources {
		if s == nil {
			return fmt.Errorf("%w: system %q source %d is nil", horizon.ErrConfig, b.name, i)
		}
		if s.Channels() < 1 {
			return fmt.Errorf("%w: system %q source %d has no channels", horizon.ErrDimensionMismatch, b.name, i)
		}
		nu += s.Channels()
	}
	b.sources = append([]ControlSource(nil), sources...)
	b.nu = nu
	b.u = mat.NewDense(nu, b.tb.Len(), nil)
	b.ucol = make([]float64, nu)
	return nil
}

// stackInput builds u[:,kt] from the sources' controls at kt-1 (0 at kt = 0).
func (b *base) stackInput(kt int) error {
	if b.sources == nil {
		return fmt.Errorf("%w: system %q", horizon.ErrNotBound, b.name)
	}
	if err := b.cursor.Expect("system "+b.name, kt); err != nil {
		return err
	}
	src := kt - 1
	if kt == 0 {
		src = 0
	}
	off := 0
	for _, s := range b.sources {
		n := s.Channels()
		if err := s.ControlInto(b.ucol[off:off+n], src); err != nil {
			return err
		}
		off += n
	}
	b.u.SetCol(kt, b.ucol)
	return nil
}

// Sources returns the bound controllers in stacking order; nil before Bind.
func (b *base) Sources() []ControlSource {
	if b.sources == nil {
		return nil
	}
	return append([]ControlSource(nil), b.sources...)
}

func (b *base) Name() string       { return b.name }
func (b *base) Inputs() int        { return b.nu }
func (b *base) Outputs() int       { return b.ny }
func (b *base) Output() mat.Matrix { return b.y }

// Input returns the stacked input array; nil before Bind.
func (b *base) Input() mat.Matrix {
	if b.u == nil {
		return nil
	}
	return b.u
}

// OutputInto copies y[:,kt], available once step kt has run.
func (b *base) OutputInto(dst []float64, kt int) error {
	if len(dst) != b.ny {
		return fmt.Errorf("%w: output buffer has %d slots, system %q has %d outputs",
			horizon.ErrDimensionMismatch, len(dst), b.name, b.ny)
	}
	if !b.cursor.Completed(kt) {
		return fmt.Errorf("%w: output %d of system %q not produced yet", horizon.ErrSequence, kt, b.name)
	}
	for i := range dst {
		dst[i] = b.y.At(i, kt)
	}
	return nil
}
