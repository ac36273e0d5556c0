package plant

import (
	"fmt"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// LinearConfig describes x' = A x + B u, y = C x + D u. D may be nil for
// zero feedthrough; X0 nil starts from the origin.
type LinearConfig struct {
	Name string
	A    mat.Matrix
	B    mat.Matrix
	C    mat.Matrix
	D    mat.Matrix
	X0   []float64
}

// Linear is a linear time-invariant system advanced with explicit forward
// Euler. The state array has N+1 columns because the update at the last
// index writes one slot past the horizon. Forward Euler is not guaranteed
// stable for stiff A.
type Linear struct {
	base
	a, b, c, d *mat.Dense
	nx         int
	x          *mat.Dense
	xdot       *mat.Dense
}

func NewLinear(tb *horizon.TimeBase, cfg LinearConfig) (*Linear, error) {
	if cfg.A == nil || cfg.B == nil || cfg.C == nil {
		return nil, fmt.Errorf("%w: linear system %q needs A, B and C", horizon.ErrConfig, cfg.Name)
	}
	ar, ac := cfg.A.Dims()
	if ar != ac {
		return nil, fmt.Errorf("%w: A of %q is %dx%d, must be square", horizon.ErrDimensionMismatch, cfg.Name, ar, ac)
	}
	nx := ar
	br, bc := cfg.B.Dims()
	if br != nx {
		return nil, fmt.Errorf("%w: B of %q has %d rows, want %d", horizon.ErrDimensionMismatch, cfg.Name, br, nx)
	}
	cr, cc := cfg.C.Dims()
	if cc != nx {
		return nil, fmt.Errorf("%w: C of %q has %d columns, want %d", horizon.ErrDimensionMismatch, cfg.Name, cc, nx)
	}
	var d *mat.Dense
	if cfg.D != nil {
		dr, dc := cfg.D.Dims()
		if dr != cr || dc != bc {
			return nil, fmt.Errorf("%w: D of %q is %dx%d, want %dx%d", horizon.ErrDimensionMismatch, cfg.Name, dr, dc, cr, bc)
		}
		d = mat.DenseCopyOf(cfg.D)
	}
	if cfg.X0 != nil && len(cfg.X0) != nx {
		return nil, fmt.Errorf("%w: x0 of %q has %d entries, want %d", horizon.ErrDimensionMismatch, cfg.Name, len(cfg.X0), nx)
	}

	b, err := newBase(tb, cfg.Name, cr)
	if err != nil {
		return nil, err
	}

	l := &Linear{
		base: b,
		a:    mat.DenseCopyOf(cfg.A),
		b:    mat.DenseCopyOf(cfg.B),
		c:    mat.DenseCopyOf(cfg.C),
		d:    d,
		nx:   nx,
		x:    mat.NewDense(nx, tb.Len()+1, nil),
		xdot: mat.NewDense(nx, tb.Len(), nil),
	}
	if cfg.X0 != nil {
		l.x.SetCol(0, cfg.X0)
	}
	return l, nil
}

// Bind requires the stacked control width to match B's columns.
func (l *Linear) Bind(sources ...ControlSource) error {
	_, bc := l.b.Dims()
	nu := 0
	for _, s := range sources {
		if s != nil {
			nu += s.Channels()
		}
	}
	if nu != bc {
		return fmt.Errorf("%w: linear system %q takes %d inputs, controllers supply %d",
			horizon.ErrDimensionMismatch, l.name, bc, nu)
	}
	return l.bind(sources)
}

func (l *Linear) Step(kt int) error {
	if err := l.stackInput(kt); err != nil {
		return err
	}

	xk := mat.NewVecDense(l.nx, mat.Col(nil, kt, l.x))
	uk := mat.NewVecDense(l.nu, append([]float64(nil), l.ucol...))

	var xdot, bu mat.VecDense
	xdot.MulVec(l.a, xk)
	bu.MulVec(l.b, uk)
	xdot.AddVec(&xdot, &bu)
	l.xdot.SetCol(kt, mat.Col(nil, 0, &xdot))

	var next mat.VecDense
	next.AddScaledVec(xk, l.tb.Dt(), &xdot)
	l.x.SetCol(kt+1, mat.Col(nil, 0, &next))

	var y mat.VecDense
	y.MulVec(l.c, xk)
	if l.d != nil {
		var du mat.VecDense
		du.MulVec(l.d, uk)
		y.AddVec(&y, &du)
	}
	l.y.SetCol(kt, mat.Col(nil, 0, &y))

	l.cursor.Advance()
	return nil
}

func (l *Linear) States() int { return l.nx }

// State returns x, nx by N+1.
func (l *Linear) State() mat.Matrix { return l.x }

// Derivative returns xdot, nx by N.
func (l *Linear) Derivative() mat.Matrix { return l.xdot }
