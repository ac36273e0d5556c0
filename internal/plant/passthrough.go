package plant

import (
	"fmt"

	"github.com/san-kum/essim/internal/horizon"
)

// PassFunc maps an input column to an output column. It must be pure and
// must not retain u.
type PassFunc func(u []float64) []float64

type PassThroughConfig struct {
	Name    string
	Outputs int
	Func    PassFunc
}

// PassThrough is a stateless system y[:,kt] = f(u[:,kt]).
type PassThrough struct {
	base
	f PassFunc
}

func NewPassThrough(tb *horizon.TimeBase, cfg PassThroughConfig) (*PassThrough, error) {
	if cfg.Func == nil {
		return nil, fmt.Errorf("%w: pass-through %q has no function", horizon.ErrConfig, cfg.Name)
	}
	b, err := newBase(tb, cfg.Name, cfg.Outputs)
	if err != nil {
		return nil, err
	}
	return &PassThrough{base: b, f: cfg.Func}, nil
}

func (p *PassThrough) Bind(sources ...ControlSource) error {
	return p.bind(sources)
}

func (p *PassThrough) Step(kt int) error {
	if err := p.stackInput(kt); err != nil {
		return err
	}
	in := make([]float64, p.nu)
	copy(in, p.ucol)
	out := p.f(in)
	if len(out) != p.ny {
		return fmt.Errorf("%w: pass-through %q returned %d outputs, want %d",
			horizon.ErrDimensionMismatch, p.name, len(out), p.ny)
	}
	p.y.SetCol(kt, out)
	p.cursor.Advance()
	return nil
}
