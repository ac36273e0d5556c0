package objective

import (
	"fmt"

	"github.com/san-kum/essim/internal/horizon"
	"gonum.org/v1/gonum/mat"
)

// Reference is the desired measurement. Exactly one of scalar or
// channels is set.
type Reference struct {
	scalar   []float64
	channels *mat.Dense
}

// Scalar is a rank-1 reference: one value per timestep, shared by all
// outputs.
func Scalar(series []float64) *Reference {
	return &Reference{scalar: append([]float64(nil), series...)}
}

// PerChannel is a rank-2 reference with one row per output.
func PerChannel(m mat.Matrix) *Reference {
	return &Reference{channels: mat.DenseCopyOf(m)}
}

// ConstantScalar holds v at every timestep.
func ConstantScalar(tb *horizon.TimeBase, v float64) *Reference {
	s := make([]float64, tb.Len())
	for i := range s {
		s[i] = v
	}
	return &Reference{scalar: s}
}

// ConstantPerChannel holds values[i] on output i at every timestep.
func ConstantPerChannel(tb *horizon.TimeBase, values ...float64) *Reference {
	m := mat.NewDense(len(values), tb.Len(), nil)
	for i, v := range values {
		for k := 0; k < tb.Len(); k++ {
			m.Set(i, k, v)
		}
	}
	return &Reference{channels: m}
}

// Rank is 1 for scalar references and 2 for per-channel references.
func (r *Reference) Rank() int {
	if r.channels != nil {
		return 2
	}
	return 1
}

func (r *Reference) validate(tb *horizon.TimeBase, ny int) error {
	switch {
	case r.channels != nil && r.scalar != nil:
		return fmt.Errorf("%w: reference is both rank 1 and rank 2", horizon.ErrConfig)
	case r.channels != nil:
		rows, cols := r.channels.Dims()
		if err := tb.CheckLen("reference", cols); err != nil {
			return err
		}
		if ny >= 0 && rows != ny {
			return fmt.Errorf("%w: reference has %d rows, measurement has %d", horizon.ErrDimensionMismatch, rows, ny)
		}
	case r.scalar != nil:
		return tb.CheckLen("reference", len(r.scalar))
	default:
		return fmt.Errorf("%w: empty reference", horizon.ErrConfig)
	}
	return nil
}

// fill writes the reference at kt into dst, broadcasting rank-1 values.
func (r *Reference) fill(dst []float64, kt int) {
	if r.channels != nil {
		for i := range dst {
			dst[i] = r.channels.At(i, kt)
		}
		return
	}
	for i := range dst {
		dst[i] = r.scalar[kt]
	}
}
