package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/essim/internal/plant"
)

// Series is one named time series of a finished run.
type Series struct {
	Name   string
	Values []float64
}

// Series flattens every component array into named series, trimmed to
// the first steps samples. Names follow <component>.<array>[<row>].
func (b *Bundle) Series(steps int) []Series {
	if steps < 0 || steps > b.TimeBase.Len() {
		steps = b.TimeBase.Len()
	}
	out := []Series{{Name: "t", Values: b.TimeBase.Times()[:steps]}}

	rows := func(prefix string, m mat.Matrix) {
		if m == nil {
			return
		}
		r, _ := m.Dims()
		for i := 0; i < r; i++ {
			row := mat.Row(nil, i, m)
			out = append(out, Series{Name: fmt.Sprintf("%s[%d]", prefix, i), Values: row[:steps]})
		}
	}

	for _, es := range b.Controllers {
		n := es.Name()
		out = append(out, Series{Name: n + ".psi", Values: es.Psi()[:steps]})
		rows(n+".theta", es.Theta())
		rows(n+".thetahat", es.Thetahat())
		rows(n+".xihat", es.Xihat())
		rows(n+".sigma", es.Sigma())
		rows(n+".rho", es.Rho())
		rows(n+".eps", es.Eps())
	}
	for _, s := range b.Systems {
		n := s.Name()
		rows(n+".u", s.Input())
		rows(n+".y", s.Output())
		if l, ok := s.(*plant.Linear); ok {
			rows(n+".x", l.State())
		}
	}
	for _, f := range b.Objectives {
		n := f.Name()
		out = append(out, Series{Name: n + ".psi", Values: f.Psi()[:steps]})
		rows(n+".y", f.Measurements())
	}
	return out
}

// Find returns the series with the given name.
func Find(series []Series, name string) ([]float64, bool) {
	for _, s := range series {
		if s.Name == name {
			return s.Values, true
		}
	}
	return nil, false
}
